package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Filings reads the recent SEC filing mix: periodic reports signal routine
// disclosure, a burst of 8-Ks signals material events, Form 4s signal
// insider activity.
type Filings struct{}

// NewFilings creates the filings analyst.
func NewFilings() *Filings { return &Filings{} }

func (f *Filings) Kind() core.Dimension { return core.DimensionFilings }

// Evaluate summarizes the filing mix inside the window.
func (f *Filings) Evaluate(ctx context.Context, subject core.Subject, obs []core.Observation, memories []memory.Entry) (core.Finding, error) {
	if err := requireObservations(f.Kind(), obs); err != nil {
		return core.Finding{}, err
	}

	var periodic, events, insider, other int
	for _, o := range obs {
		form := strings.ToUpper(o.PayloadString("form"))
		switch {
		case form == "10-K" || form == "10-Q" || strings.HasPrefix(form, "10-K/") || strings.HasPrefix(form, "10-Q/"):
			periodic++
		case form == "8-K" || strings.HasPrefix(form, "8-K/"):
			events++
		case form == "4" || form == "3" || form == "5":
			insider++
		default:
			other++
		}
	}
	total := periodic + events + insider + other

	var tone string
	switch {
	case events >= 3:
		tone = "elevated event activity"
	case events > 0:
		tone = "routine disclosure with recent events"
	default:
		tone = "routine disclosure"
	}

	parts := []string{fmt.Sprintf("%d filings", total)}
	if periodic > 0 {
		parts = append(parts, fmt.Sprintf("%d periodic", periodic))
	}
	if events > 0 {
		parts = append(parts, fmt.Sprintf("%d event (8-K)", events))
	}
	if insider > 0 {
		parts = append(parts, fmt.Sprintf("%d insider", insider))
	}
	if other > 0 {
		parts = append(parts, fmt.Sprintf("%d other", other))
	}

	// Filing counts are hard facts; only the tone reading is heuristic.
	confidence := 0.6
	if total >= 5 {
		confidence = 0.75
	}

	return core.Finding{
		AgentKind:   f.Kind(),
		Subject:     subject.Symbol,
		DerivedFrom: observationIDs(obs),
		Conclusion:  fmt.Sprintf("%s: %s", tone, strings.Join(parts, ", ")),
		Confidence:  confidence,
		ProducedAt:  time.Now().UTC(),
	}, nil
}
