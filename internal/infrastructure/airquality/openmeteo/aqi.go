package openmeteo

// US EPA AQI over the two pollutants that dominate valley air quality. Each
// pollutant maps through its breakpoint table and the overall AQI is the
// worse of the two. A missing reading contributes zero.

func calculateAQI(pm25, ozone *float64) int {
	return maxInt(int(pm25AQI(pm25)), int(ozoneAQI(ozone)))
}

func pm25AQI(pm25 *float64) float64 {
	if pm25 == nil {
		return 0
	}
	v := *pm25
	switch {
	case v <= 12.0:
		return 50 * (v / 12.0)
	case v <= 35.4:
		return 51 + 49*((v-12.1)/(35.4-12.1))
	case v <= 55.4:
		return 101 + 49*((v-35.5)/(55.4-35.5))
	default:
		return 151 + 99*((v-55.5)/(150.4-55.5))
	}
}

func ozoneAQI(ozone *float64) float64 {
	if ozone == nil {
		return 0
	}
	v := *ozone
	switch {
	case v <= 54:
		return 50 * (v / 54)
	case v <= 70:
		return 51 + 49*((v-55)/(70-55))
	case v <= 85:
		return 101 + 49*((v-71)/(85-71))
	default:
		return 151 + 99*((v-86)/(105-86))
	}
}

func aqiCategory(aqi int) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Moderate"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups"
	case aqi <= 200:
		return "Unhealthy"
	case aqi <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
