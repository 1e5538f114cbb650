package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

// Synthesizer turns the final evidence set into a grounded answer. It builds
// the context string and prompt; the generation call itself is the external
// collaborator. An empty evidence set yields an empty context string and the
// prompt's own insufficient-context behavior, never an error.
type Synthesizer struct {
	generator ports.TextGenerator
}

func NewSynthesizer(generator ports.TextGenerator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// BuildContext joins the measurement assessment and candidate contents with
// blank-line separators and prepends the real-time measurement block when
// present.
func BuildContext(docs []domain.Candidate, airQuality *domain.AirQualitySummary, assessment string) string {
	parts := make([]string, 0, len(docs)+1)
	if assessment != "" {
		parts = append(parts, assessment)
	}
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	contextText := strings.Join(parts, "\n\n")

	if airQuality != nil {
		block := fmt.Sprintf(
			"[Real-time Air Quality]\nAQI: %d (%s)\nPM2.5: %s µg/m³\nOzone: %s ppb\nSource: https://open-meteo.com/en/docs/air-quality-api",
			airQuality.AQI,
			airQuality.AQICategory,
			formatReading(airQuality.PM25),
			formatReading(airQuality.Ozone),
		)
		if contextText == "" {
			return block
		}
		return block + "\n" + contextText
	}
	return contextText
}

// CollectSources deduplicates candidate provenance by URL, keeping first
// occurrence order. Missing metadata degrades to placeholders rather than
// dropping the entry.
func CollectSources(docs []domain.Candidate) []domain.Source {
	sources := make([]domain.Source, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		url := doc.URL
		if url == "" {
			url = "No URL"
		}
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		sources = append(sources, domain.Source{URL: url, Title: title})
	}
	return sources
}

func (s *Synthesizer) Answer(
	ctx context.Context,
	query string,
	docs []domain.Candidate,
	airQuality *domain.AirQualitySummary,
	assessment string,
) (*domain.Answer, error) {
	prompt := buildSynthesisPrompt(BuildContext(docs, airQuality, assessment), query)
	text, err := s.generator.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	return &domain.Answer{
		Text:    text,
		Sources: CollectSources(docs),
	}, nil
}

// StreamAnswer emits token events as the model produces them, then the
// terminal answer event carrying the full text and deduplicated sources.
// emit returning false means the consumer is gone; generation stops.
func (s *Synthesizer) StreamAnswer(
	ctx context.Context,
	query string,
	docs []domain.Candidate,
	airQuality *domain.AirQualitySummary,
	assessment string,
	emit func(domain.Event) bool,
) error {
	prompt := buildSynthesisPrompt(BuildContext(docs, airQuality, assessment), query)
	sources := CollectSources(docs)

	var answer strings.Builder
	err := s.generator.Stream(ctx, prompt, func(token string) error {
		answer.WriteString(token)
		if !emit(domain.Event{Type: domain.EventToken, Token: token}) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream answer: %w", err)
	}

	emit(domain.Event{Type: domain.EventAnswer, Content: answer.String(), Sources: sources})
	return nil
}
