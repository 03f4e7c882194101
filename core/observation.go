package core

import (
	"time"

	"github.com/google/uuid"
)

// Observation is a single typed, timestamped data point produced by a
// connector fetch. Observations are immutable: they are owned by the fetch
// that created them until the orchestrator's fan-in step collects them.
type Observation struct {
	ID         string         `json:"id"`
	Source     Source         `json:"source"`
	Subject    string         `json:"subject"`
	CapturedAt time.Time      `json:"captured_at"`
	Payload    map[string]any `json:"payload"`
	Confidence float64        `json:"confidence"`
}

// NewObservation stamps a fresh observation with a unique ID.
func NewObservation(source Source, subject string, capturedAt time.Time, payload map[string]any, confidence float64) Observation {
	return Observation{
		ID:         uuid.New().String(),
		Source:     source,
		Subject:    subject,
		CapturedAt: capturedAt,
		Payload:    payload,
		Confidence: confidence,
	}
}

// PayloadString returns the named payload field as a string, or "" when the
// field is absent or not a string.
func (o Observation) PayloadString(key string) string {
	v, ok := o.Payload[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// PayloadFloat returns the named payload field as a float64. Connectors
// store numeric payload fields as float64; anything else reads as zero.
func (o Observation) PayloadFloat(key string) (float64, bool) {
	v, ok := o.Payload[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
