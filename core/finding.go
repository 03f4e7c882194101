package core

import (
	"fmt"
	"time"
)

// Finding is a structured conclusion an agent derived from observations.
// The orchestrator owns a Finding once the agent returns it.
//
// A non-degraded Finding must reference at least one observation in
// DerivedFrom; findings with empty support are rejected by Validate and the
// orchestrator replaces them with a degraded placeholder. Degraded findings
// are the placeholder themselves: Confidence 0, Cause set, no support.
type Finding struct {
	AgentKind   Dimension `json:"agent_kind"`
	Subject     string    `json:"subject"`
	DerivedFrom []string  `json:"derived_from"`
	Conclusion  string    `json:"conclusion"`
	Confidence  float64   `json:"confidence"`
	ProducedAt  time.Time `json:"produced_at"`
	Degraded    bool      `json:"degraded"`
	Cause       string    `json:"cause,omitempty"`
}

// DegradedFinding builds the zero-confidence placeholder for a dimension
// whose data could not be obtained. The run proceeds with it; a single flaky
// source never fails the whole analysis.
func DegradedFinding(kind Dimension, subject string, cause string) Finding {
	return Finding{
		AgentKind:  kind,
		Subject:    subject,
		Conclusion: fmt.Sprintf("no %s assessment available", kind),
		Confidence: 0,
		ProducedAt: time.Now().UTC(),
		Degraded:   true,
		Cause:      cause,
	}
}

// Validate enforces the support invariant for agent-produced findings.
func (f Finding) Validate() error {
	if f.Degraded {
		return nil
	}
	if len(f.DerivedFrom) == 0 {
		return fmt.Errorf("finding %s/%s references no observations", f.AgentKind, f.Subject)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("finding %s/%s confidence %.3f outside [0,1]", f.AgentKind, f.Subject, f.Confidence)
	}
	return nil
}
