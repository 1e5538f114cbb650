package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

func TestGeocodeMapsAdminFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("name") != "Fresno" || r.URL.Query().Get("count") != "1" {
			t.Fatalf("unexpected query: %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"results":[{"name":"Fresno","latitude":36.74,"longitude":-119.78,"country":"United States","admin2":"Fresno County","admin3":"Fresno"}]}`))
	}))
	defer server.Close()

	client := New(Options{GeocodingURL: server.URL})
	loc, err := client.Geocode(context.Background(), "Fresno")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if loc == nil || loc.Name != "Fresno" || loc.County != "Fresno County" || loc.City != "Fresno" {
		t.Fatalf("Geocode() = %+v", loc)
	}
	if loc.Latitude != 36.74 || loc.Longitude != -119.78 {
		t.Fatalf("coordinates = %f, %f", loc.Latitude, loc.Longitude)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := New(Options{GeocodingURL: server.URL})
	loc, err := client.Geocode(context.Background(), "Nowhereville")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if loc != nil {
		t.Fatalf("Geocode() = %+v, want nil for unknown location", loc)
	}
}

func TestFetchMeasurementsLatestNonNull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/air-quality" {
			http.NotFound(w, r)
			return
		}
		// Trailing nulls are forecast padding; the latest real readings are
		// pm2_5=17.3 and ozone=41.
		_, _ = w.Write([]byte(`{
			"hourly": {
				"time": ["2026-08-23T10:00", "2026-08-23T11:00", "2026-08-23T12:00"],
				"pm2_5": [15.0, 17.3, null],
				"pm10": [22.0, null, null],
				"nitrogen_dioxide": [null, null, null],
				"ozone": [38.0, 41.0, null],
				"sulphur_dioxide": [1.0, 1.2, null],
				"carbon_monoxide": [210.0, null, null],
				"dust": [null, 2.0, null]
			}
		}`))
	}))
	defer server.Close()

	client := New(Options{AirQualityURL: server.URL})
	summary, err := client.FetchMeasurements(context.Background(), 36.74, -119.78)
	if err != nil {
		t.Fatalf("FetchMeasurements() error = %v", err)
	}
	if summary == nil {
		t.Fatal("FetchMeasurements() = nil")
	}
	if summary.Timestamp != "2026-08-23T12:00" {
		t.Fatalf("timestamp = %q", summary.Timestamp)
	}
	if summary.PM25 == nil || *summary.PM25 != 17.3 {
		t.Fatalf("pm2.5 = %v", summary.PM25)
	}
	if summary.Ozone == nil || *summary.Ozone != 41.0 {
		t.Fatalf("ozone = %v", summary.Ozone)
	}
	if summary.NO2 != nil {
		t.Fatalf("no2 = %v, want nil for all-null series", summary.NO2)
	}
	if summary.AQICategory != "Moderate" {
		t.Fatalf("aqi category = %q (aqi %d)", summary.AQICategory, summary.AQI)
	}
}

func TestFetchMeasurementsEmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":{"time":[]}}`))
	}))
	defer server.Close()

	client := New(Options{AirQualityURL: server.URL})
	summary, err := client.FetchMeasurements(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("FetchMeasurements() error = %v", err)
	}
	if summary != nil {
		t.Fatalf("FetchMeasurements() = %+v, want nil", summary)
	}
}

func TestCalculateAQIBreakpoints(t *testing.T) {
	tests := []struct {
		name  string
		pm25  *float64
		ozone *float64
		want  int
	}{
		{"both missing", nil, nil, 0},
		{"good pm2.5", ptr(6.0), nil, 25},
		{"moderate pm2.5", ptr(17.3), nil, 61},
		{"moderate ozone", ptr(0.0), ptr(60.0), 67},
		{"worse pollutant wins", ptr(17.3), ptr(60.0), 67},
		{"unhealthy sensitive pm2.5", ptr(40.0), nil, 112},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateAQI(tt.pm25, tt.ozone); got != tt.want {
				t.Fatalf("calculateAQI() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAQICategories(t *testing.T) {
	tests := []struct {
		aqi  int
		want string
	}{
		{0, "Good"}, {50, "Good"}, {51, "Moderate"}, {100, "Moderate"},
		{101, "Unhealthy for Sensitive Groups"}, {151, "Unhealthy"},
		{201, "Very Unhealthy"}, {301, "Hazardous"},
	}
	for _, tt := range tests {
		if got := aqiCategory(tt.aqi); got != tt.want {
			t.Fatalf("aqiCategory(%d) = %q, want %q", tt.aqi, got, tt.want)
		}
	}
}

func TestInServiceArea(t *testing.T) {
	client := New(Options{})

	tests := []struct {
		name string
		loc  *domain.Location
		want bool
	}{
		{"nil location", nil, false},
		{"city match", &domain.Location{Name: "Somewhere", City: "Fresno"}, true},
		{"name match", &domain.Location{Name: "Bakersfield"}, true},
		{"county with suffix", &domain.Location{Name: "Rural spot", County: "Tulare County"}, true},
		{"county without suffix", &domain.Location{Name: "Rural spot", County: "Tulare"}, true},
		{"outside the valley", &domain.Location{Name: "Sacramento", County: "Sacramento County"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.InServiceArea(tt.loc); got != tt.want {
				t.Fatalf("InServiceArea() = %v, want %v", got, tt.want)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }
