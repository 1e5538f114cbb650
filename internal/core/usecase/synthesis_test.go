package usecase

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildContextJoinsWithBlankLines(t *testing.T) {
	docs := []domain.Candidate{
		{Document: domain.Document{Content: "first chunk"}},
		{Document: domain.Document{Content: "second chunk"}},
	}

	got := BuildContext(docs, nil, "")
	if got != "first chunk\n\nsecond chunk" {
		t.Fatalf("BuildContext() = %q", got)
	}
}

func TestBuildContextPrependsAirQualityBlock(t *testing.T) {
	docs := []domain.Candidate{{Document: domain.Document{Content: "wildfire smoke guidance"}}}
	summary := &domain.AirQualitySummary{
		AQI:         62,
		AQICategory: "Moderate",
		PM25:        floatPtr(17.3),
		Ozone:       floatPtr(41.0),
	}

	got := BuildContext(docs, summary, "")
	if !strings.HasPrefix(got, "[Real-time Air Quality]\nAQI: 62 (Moderate)\nPM2.5: 17.3 µg/m³\nOzone: 41 ppb") {
		t.Fatalf("BuildContext() = %q", got)
	}
	if !strings.HasSuffix(got, "wildfire smoke guidance") {
		t.Fatalf("retrieved context dropped: %q", got)
	}
}

func TestBuildContextLeadsWithAssessment(t *testing.T) {
	docs := []domain.Candidate{{Document: domain.Document{Content: "wildfire smoke guidance"}}}
	summary := &domain.AirQualitySummary{AQI: 62, AQICategory: "Moderate"}

	got := BuildContext(docs, summary, "Air in Fresno is moderate today.")
	block := strings.Index(got, "[Real-time Air Quality]")
	narrative := strings.Index(got, "Air in Fresno is moderate today.")
	evidence := strings.Index(got, "wildfire smoke guidance")
	if block != 0 || narrative < block || evidence < narrative {
		t.Fatalf("context order wrong: %q", got)
	}
}

func TestBuildContextEmptyEvidence(t *testing.T) {
	if got := BuildContext(nil, nil, ""); got != "" {
		t.Fatalf("BuildContext(nil, nil, \"\") = %q, want empty", got)
	}
}

func TestCollectSourcesDeduplicatesByURL(t *testing.T) {
	docs := []domain.Candidate{
		{Document: domain.Document{URL: "https://valleyair.gov/a", Title: "A"}},
		{Document: domain.Document{URL: "https://valleyair.gov/b", Title: "B"}},
		{Document: domain.Document{URL: "https://valleyair.gov/a", Title: "A duplicate"}},
	}

	got := CollectSources(docs)
	want := []domain.Source{
		{URL: "https://valleyair.gov/a", Title: "A"},
		{URL: "https://valleyair.gov/b", Title: "B"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectSources() = %v, want %v", got, want)
	}
}

func TestCollectSourcesPlaceholders(t *testing.T) {
	got := CollectSources([]domain.Candidate{{Document: domain.Document{Content: "orphan"}}})
	if len(got) != 1 || got[0].URL != "No URL" || got[0].Title != "Untitled" {
		t.Fatalf("CollectSources() = %v", got)
	}
}

func TestAnswerCarriesSources(t *testing.T) {
	gen := &fakeGenerator{invokeFn: func(prompt string) (string, error) {
		if !strings.Contains(prompt, "burn day chunk") {
			t.Fatalf("prompt missing context: %q", prompt)
		}
		return "It is a no-burn day.", nil
	}}
	docs := []domain.Candidate{
		{Document: domain.Document{Content: "burn day chunk", URL: "https://valleyair.gov/burn", Title: "Burn Status"}},
	}

	answer, err := NewSynthesizer(gen).Answer(context.Background(), "can I burn wood today", docs, nil, "")
	if err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if answer.Text != "It is a no-burn day." {
		t.Fatalf("answer text = %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Title != "Burn Status" {
		t.Fatalf("answer sources = %v", answer.Sources)
	}
}

func TestStreamAnswerEmitsTokensThenAnswer(t *testing.T) {
	gen := &fakeGenerator{streamFn: func(_ string, onToken func(string) error) error {
		for _, tok := range []string{"It ", "is ", "moderate."} {
			if err := onToken(tok); err != nil {
				return err
			}
		}
		return nil
	}}
	docs := []domain.Candidate{
		{Document: domain.Document{Content: "aqi chunk", URL: "u", Title: "T"}},
	}

	var events []domain.Event
	err := NewSynthesizer(gen).StreamAnswer(context.Background(), "q", docs, nil, "", func(ev domain.Event) bool {
		events = append(events, ev)
		return true
	})
	if err != nil {
		t.Fatalf("StreamAnswer() failed: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("emitted %d events, want 3 tokens + answer", len(events))
	}
	for _, ev := range events[:3] {
		if ev.Type != domain.EventToken {
			t.Fatalf("unexpected event before answer: %+v", ev)
		}
	}
	final := events[3]
	if final.Type != domain.EventAnswer || final.Content != "It is moderate." {
		t.Fatalf("final event = %+v", final)
	}
	if len(final.Sources) != 1 || final.Sources[0].URL != "u" {
		t.Fatalf("final sources = %v", final.Sources)
	}
}

func TestStreamAnswerStopsWhenConsumerGone(t *testing.T) {
	delivered := 0
	gen := &fakeGenerator{streamFn: func(_ string, onToken func(string) error) error {
		for _, tok := range []string{"a", "b", "c"} {
			if err := onToken(tok); err != nil {
				return err
			}
			delivered++
		}
		return nil
	}}

	err := NewSynthesizer(gen).StreamAnswer(context.Background(), "q", nil, nil, "", func(domain.Event) bool {
		return false
	})
	if err == nil {
		t.Fatal("StreamAnswer() = nil error, want cancellation")
	}
	if delivered != 0 {
		t.Fatalf("generation continued after consumer left: %d tokens", delivered)
	}
}
