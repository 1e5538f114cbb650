package domain

import "strings"

// IntentLabel is the classified routing label for a user query.
type IntentLabel string

const (
	IntentGeneral    IntentLabel = "general"
	IntentAirQuality IntentLabel = "air_quality"
)

// ParseIntentLabel coerces raw classifier output to a known label. Anything
// unrecognized resolves to IntentGeneral so the query stays on the richer
// retrieval path; the second return reports whether the raw value matched.
func ParseIntentLabel(raw string) (IntentLabel, bool) {
	label := IntentLabel(strings.ToLower(strings.TrimSpace(raw)))
	switch label {
	case IntentGeneral, IntentAirQuality:
		return label, true
	}
	return IntentGeneral, false
}

// QueryContext is the per-request expansion record. It is immutable after the
// expander stage and read by every downstream stage.
type QueryContext struct {
	Original string
	Rewrites []string
	Keywords []string
	Intent   IntentLabel
}

// PrimaryRewrite is the single variant that drives the semantic leg.
func (qc QueryContext) PrimaryRewrite() string {
	if len(qc.Rewrites) > 0 {
		return qc.Rewrites[0]
	}
	return qc.Original
}
