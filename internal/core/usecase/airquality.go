package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

const locationNeededMessage = "Please enter a city, county, or zip code in the San Joaquin Valley:"

// AirQualityAgent handles the domain-specific branch: it extracts a location
// from the query, geocodes and validates it against the district's service
// area, and fetches the current measurement summary.
type AirQualityAgent struct {
	generator ports.TextGenerator
	gateway   ports.AirQualityGateway
}

func NewAirQualityAgent(generator ports.TextGenerator, gateway ports.AirQualityGateway) *AirQualityAgent {
	return &AirQualityAgent{generator: generator, gateway: gateway}
}

// AirQualityResult is the branch outcome. NeedsLocation means the caller
// should prompt for a valley location; Message carries the reason. Assessment
// is the model's narrative reading of the measurements, folded into the
// synthesis context downstream.
type AirQualityResult struct {
	Summary       *domain.AirQualitySummary
	Location      *domain.Location
	Assessment    string
	NeedsLocation bool
	Message       string
}

// Run never returns an error for missing or out-of-area locations; those are
// a NeedsLocation outcome the caller renders as a prompt, not a failure.
func (a *AirQualityAgent) Run(ctx context.Context, query string) AirQualityResult {
	locationText := a.extractLocation(ctx, query)
	if locationText == "" {
		return AirQualityResult{NeedsLocation: true, Message: locationNeededMessage}
	}

	loc, err := a.gateway.Geocode(ctx, locationText)
	if err != nil {
		slog.Warn("geocode_failed", "location", locationText, "error", err)
		return AirQualityResult{NeedsLocation: true, Message: locationNeededMessage}
	}
	if loc == nil {
		return AirQualityResult{NeedsLocation: true, Message: locationNeededMessage}
	}
	if !a.gateway.InServiceArea(loc) {
		return AirQualityResult{
			NeedsLocation: true,
			Message: fmt.Sprintf(
				"Sorry, %s is not in the San Joaquin Valley. Please enter a city, county, or zip code within the valley.",
				locationText,
			),
		}
	}

	summary, err := a.gateway.FetchMeasurements(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		slog.Warn("fetch_measurements_failed", "location", loc.Name, "error", err)
		return AirQualityResult{NeedsLocation: true, Message: locationNeededMessage}
	}
	if summary == nil {
		return AirQualityResult{NeedsLocation: true, Message: locationNeededMessage}
	}

	assessment, err := a.summarizeMeasurements(ctx, loc, summary)
	if err != nil {
		// The raw measurement block still reaches synthesis, so a failed
		// narrative degrades the answer rather than the branch.
		slog.Warn("measurement_summary_failed", "location", loc.Name, "error", err)
		assessment = ""
	}

	return AirQualityResult{Summary: summary, Location: loc, Assessment: assessment}
}

// summarizeMeasurements renders the measurement snapshot as a short
// user-facing explanation.
func (a *AirQualityAgent) summarizeMeasurements(
	ctx context.Context,
	loc *domain.Location,
	summary *domain.AirQualitySummary,
) (string, error) {
	text, err := a.generator.Invoke(ctx, buildMeasurementPrompt(loc.Name, summary))
	if err != nil {
		return "", fmt.Errorf("summarize measurements: %w", err)
	}
	return text, nil
}

// extractLocation asks the model for a strict {city, county, zip} object and
// takes the first non-empty field. Any parse failure means no location.
func (a *AirQualityAgent) extractLocation(ctx context.Context, query string) string {
	raw, err := a.generator.Invoke(ctx, buildLocationPrompt(query))
	if err != nil {
		slog.Warn("location_extraction_failed", "error", err)
		return ""
	}

	var parsed struct {
		City   string `json:"city"`
		County string `json:"county"`
		Zip    string `json:"zip"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		slog.Warn("location_extraction_unparsable", "raw", truncateForLog(raw, 120))
		return ""
	}

	switch {
	case parsed.City != "":
		return parsed.City
	case parsed.County != "":
		return parsed.County
	default:
		return parsed.Zip
	}
}
