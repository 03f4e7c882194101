package core

import (
	"sort"
	"time"
)

// RunResult aggregates every Finding plus the synthesizer's memo for one
// subject/run. Immutable once sealed; memory entries derive from exactly one
// sealed RunResult.
type RunResult struct {
	Subject   Subject   `json:"subject"`
	Findings  []Finding `json:"findings"`
	Memo      string    `json:"memo"`
	StartedAt time.Time `json:"started_at"`
	SealedAt  time.Time `json:"sealed_at"`

	sealed bool
}

// NewRunResult starts an unsealed result for a subject.
func NewRunResult(subject Subject) *RunResult {
	return &RunResult{
		Subject:   subject,
		StartedAt: time.Now().UTC(),
	}
}

// AddFinding appends a merged finding. No-op after sealing.
func (r *RunResult) AddFinding(f Finding) {
	if r.sealed {
		return
	}
	r.Findings = append(r.Findings, f)
}

// Seal freezes the result with the final memo. Sealing twice is a no-op so
// a sealed result can never be rewritten.
func (r *RunResult) Seal(memo string) {
	if r.sealed {
		return
	}
	r.Memo = memo
	r.SealedAt = time.Now().UTC()
	r.sealed = true

	sort.Slice(r.Findings, func(i, j int) bool {
		return r.Findings[i].AgentKind < r.Findings[j].AgentKind
	})
}

// Sealed reports whether the result is frozen.
func (r *RunResult) Sealed() bool {
	return r.sealed
}

// FindingFor returns the merged finding for one dimension.
func (r *RunResult) FindingFor(kind Dimension) (Finding, bool) {
	for _, f := range r.Findings {
		if f.AgentKind == kind {
			return f, true
		}
	}
	return Finding{}, false
}

// DegradedCount reports how many findings are zero-confidence placeholders.
func (r *RunResult) DegradedCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Degraded {
			n++
		}
	}
	return n
}
