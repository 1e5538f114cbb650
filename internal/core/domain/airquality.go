package domain

// Location is a geocoded place as returned by the geocoding collaborator.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	County    string  `json:"county"`
	City      string  `json:"city"`
}

// AirQualitySummary is the latest-hour measurement snapshot for a location.
// Pointer fields are nil when the provider reported no reading.
type AirQualitySummary struct {
	Timestamp   string   `json:"timestamp"`
	AQI         int      `json:"aqi"`
	AQICategory string   `json:"aqi_category"`
	PM25        *float64 `json:"pm2_5"`
	PM10        *float64 `json:"pm10"`
	Ozone       *float64 `json:"ozone"`
	NO2         *float64 `json:"no2"`
	SO2         *float64 `json:"so2"`
	CO          *float64 `json:"co"`
	Dust        *float64 `json:"dust"`
}
