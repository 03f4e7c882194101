package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Synthesizer is the terminal agent: it folds the merged per-dimension
// findings and recalled memory entries into one investment memo. Structurally
// it mirrors Agent, taking findings where the others take observations.
type Synthesizer interface {
	Kind() core.Dimension

	// Synthesize returns the memo as a synthesis-kind finding. The
	// finding's Conclusion is the memo text; its DerivedFrom is unused
	// since it references findings rather than observations.
	Synthesize(ctx context.Context, subject core.Subject, findings []core.Finding, memories []memory.Entry) (core.Finding, error)
}

// Memo is the deterministic synthesizer. Identical findings produce an
// identical memo; the only varying field is ProducedAt.
type Memo struct{}

// NewMemo creates the deterministic synthesizer.
func NewMemo() *Memo { return &Memo{} }

func (m *Memo) Kind() core.Dimension { return core.DimensionSynthesis }

// Synthesize renders the memo from findings in dimension order, with
// degraded dimensions listed separately and prior memory context appended.
func (m *Memo) Synthesize(ctx context.Context, subject core.Subject, findings []core.Finding, memories []memory.Entry) (core.Finding, error) {
	if len(findings) == 0 {
		return core.Finding{}, core.NewAgentError(m.Kind(), core.AgentInsufficientData,
			fmt.Errorf("no findings to synthesize"))
	}

	byKind := make(map[core.Dimension]core.Finding, len(findings))
	for _, f := range findings {
		byKind[f.AgentKind] = f
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Investment memo: %s (as of %s)\n", subject.Symbol, subject.AsOf.Format("2006-01-02"))

	var degraded []core.Finding
	covered := 0
	confidenceSum := 0.0
	for _, kind := range core.AllDimensions {
		f, ok := byKind[kind]
		if !ok {
			continue
		}
		if f.Degraded {
			degraded = append(degraded, f)
			continue
		}
		fmt.Fprintf(&b, "\n[%s] %s (confidence %.2f)\n", strings.ToUpper(string(f.AgentKind)), f.Conclusion, f.Confidence)
		covered++
		confidenceSum += f.Confidence
	}

	if len(degraded) > 0 {
		b.WriteString("\nUnavailable dimensions:\n")
		for _, f := range degraded {
			fmt.Fprintf(&b, "- %s (%s)\n", f.AgentKind, f.Cause)
		}
	}

	if len(memories) > 0 {
		b.WriteString("\nPrior analyses:\n")
		for _, e := range memories {
			fmt.Fprintf(&b, "- %s: %s\n", e.CreatedAt.Format("2006-01-02"), e.Summary)
		}
	}

	avg := 0.0
	if covered > 0 {
		avg = confidenceSum / float64(covered)
	}
	fmt.Fprintf(&b, "\nCoverage: %d of %d dimensions; average confidence %.2f.\n", covered, len(findings), avg)

	return core.Finding{
		AgentKind:  m.Kind(),
		Subject:    subject.Symbol,
		Conclusion: b.String(),
		Confidence: avg,
		ProducedAt: time.Now().UTC(),
	}, nil
}
