package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

// Classifier decides whether a query is routed to the air-quality pipeline or
// the general retrieval pipeline. It never fails: an unparsable label or a
// failed model call resolves to IntentGeneral so the query always keeps the
// richer retrieval path.
type Classifier struct {
	generator ports.TextGenerator
}

func NewClassifier(generator ports.TextGenerator) *Classifier {
	return &Classifier{generator: generator}
}

func (c *Classifier) Classify(ctx context.Context, query string) domain.IntentLabel {
	response, err := c.generator.Invoke(ctx, buildClassifierPrompt(query))
	if err != nil {
		slog.Warn("classifier_call_failed", "error", err)
		return domain.IntentGeneral
	}

	label, known := domain.ParseIntentLabel(firstNonBlankLine(response))
	if !known {
		slog.Warn("classifier_fallback", "raw", truncateForLog(response, 120))
	}
	return label
}

func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncateForLog(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
