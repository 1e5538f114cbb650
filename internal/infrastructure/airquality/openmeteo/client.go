package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

const (
	defaultGeocodingURL  = "https://geocoding-api.open-meteo.com/v1"
	defaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1"

	hourlyVariables = "pm10,pm2_5,nitrogen_dioxide,ozone,sulphur_dioxide,carbon_monoxide,dust"
)

// Client is the open-meteo gateway: geocoding for location resolution and the
// air-quality API for current measurements. Both endpoints are free-tier
// public APIs, so outbound calls go through a shared rate limiter.
type Client struct {
	geocodingURL  string
	airQualityURL string
	httpClient    *http.Client
	limiter       *rate.Limiter
}

type Options struct {
	GeocodingURL   string
	AirQualityURL  string
	RequestsPerSec float64
	Burst          int
}

func New(opts Options) *Client {
	geocodingURL := opts.GeocodingURL
	if geocodingURL == "" {
		geocodingURL = defaultGeocodingURL
	}
	airQualityURL := opts.AirQualityURL
	if airQualityURL == "" {
		airQualityURL = defaultAirQualityURL
	}
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		geocodingURL:  strings.TrimRight(geocodingURL, "/"),
		airQualityURL: strings.TrimRight(airQualityURL, "/"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Geocode resolves a free-text location to coordinates. A location the
// geocoder does not know yields nil without error.
func (c *Client) Geocode(ctx context.Context, location string) (*domain.Location, error) {
	params := url.Values{
		"name":     {location},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	var response struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Country   string  `json:"country"`
			Admin2    string  `json:"admin2"`
			Admin3    string  `json:"admin3"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL+"/search?"+params.Encode(), &response, "geocode"); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, nil
	}

	r := response.Results[0]
	return &domain.Location{
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Country:   r.Country,
		County:    r.Admin2,
		City:      r.Admin3,
	}, nil
}

// FetchMeasurements pulls the hourly series for the coordinates and reduces
// each pollutant to its latest non-null reading. The provider pads the series
// with nulls for future hours, so the scan runs from the end backwards.
func (c *Client) FetchMeasurements(ctx context.Context, latitude, longitude float64) (*domain.AirQualitySummary, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(longitude, 'f', -1, 64)},
		"hourly":    {hourlyVariables},
		"timezone":  {"auto"},
	}

	var response struct {
		Hourly struct {
			Time            []string   `json:"time"`
			PM10            []*float64 `json:"pm10"`
			PM25            []*float64 `json:"pm2_5"`
			NitrogenDioxide []*float64 `json:"nitrogen_dioxide"`
			Ozone           []*float64 `json:"ozone"`
			SulphurDioxide  []*float64 `json:"sulphur_dioxide"`
			CarbonMonoxide  []*float64 `json:"carbon_monoxide"`
			Dust            []*float64 `json:"dust"`
		} `json:"hourly"`
	}
	if err := c.getJSON(ctx, c.airQualityURL+"/air-quality?"+params.Encode(), &response, "air quality"); err != nil {
		return nil, err
	}
	if len(response.Hourly.Time) == 0 {
		return nil, nil
	}

	pm25 := latestReading(response.Hourly.PM25)
	ozone := latestReading(response.Hourly.Ozone)
	aqi := calculateAQI(pm25, ozone)

	return &domain.AirQualitySummary{
		Timestamp:   response.Hourly.Time[len(response.Hourly.Time)-1],
		AQI:         aqi,
		AQICategory: aqiCategory(aqi),
		PM25:        pm25,
		PM10:        latestReading(response.Hourly.PM10),
		Ozone:       ozone,
		NO2:         latestReading(response.Hourly.NitrogenDioxide),
		SO2:         latestReading(response.Hourly.SulphurDioxide),
		CO:          latestReading(response.Hourly.CarbonMonoxide),
		Dust:        latestReading(response.Hourly.Dust),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, out any, operation string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit wait: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return fmt.Errorf("open-meteo %s status: %s", operation, resp.Status)
		}
		return fmt.Errorf("open-meteo %s status: %s: %s", operation, resp.Status, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func latestReading(series []*float64) *float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != nil {
			return series[i]
		}
	}
	return nil
}
