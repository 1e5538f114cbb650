package domain

// EventType discriminates streaming-mode emissions.
type EventType string

const (
	EventTool           EventType = "tool"
	EventToken          EventType = "token"
	EventAnswer         EventType = "answer"
	EventDone           EventType = "done"
	EventLocationNeeded EventType = "location_needed"
	EventAirQuality     EventType = "air_quality"
)

// Event is one emission of the streaming pipeline. Only the fields relevant
// to its Type are populated.
type Event struct {
	Type       EventType          `json:"type"`
	Rewrites   []string           `json:"rewrites,omitempty"`
	Keywords   []string           `json:"keywords,omitempty"`
	Token      string             `json:"token,omitempty"`
	Content    string             `json:"content,omitempty"`
	Sources    []Source           `json:"sources,omitempty"`
	Message    string             `json:"message,omitempty"`
	AirQuality *AirQualitySummary `json:"data,omitempty"`
}
