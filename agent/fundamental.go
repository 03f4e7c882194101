package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Fundamental reads the valuation snapshot: trailing PE bands and position
// inside the 52-week range.
type Fundamental struct{}

// NewFundamental creates the fundamental analyst.
func NewFundamental() *Fundamental { return &Fundamental{} }

func (f *Fundamental) Kind() core.Dimension { return core.DimensionFundamental }

// Evaluate derives a valuation reading from the quote snapshot.
func (f *Fundamental) Evaluate(ctx context.Context, subject core.Subject, obs []core.Observation, memories []memory.Entry) (core.Finding, error) {
	if err := requireObservations(f.Kind(), obs); err != nil {
		return core.Finding{}, err
	}

	// The fundamentals connector emits a single snapshot; take the first
	// observation that carries a price.
	var snapshot core.Observation
	found := false
	for _, o := range obs {
		if _, ok := o.PayloadFloat("price"); ok {
			snapshot = o
			found = true
			break
		}
	}
	if !found {
		return core.Finding{}, core.NewAgentError(f.Kind(), core.AgentInsufficientData,
			fmt.Errorf("no valuation snapshot among %d observations", len(obs)))
	}

	price, _ := snapshot.PayloadFloat("price")
	pe, _ := snapshot.PayloadFloat("pe_ratio")
	high, _ := snapshot.PayloadFloat("high_52w")
	low, _ := snapshot.PayloadFloat("low_52w")
	name := snapshot.PayloadString("name")
	if name == "" {
		name = subject.Symbol
	}

	var notes []string
	confidence := 0.4

	switch {
	case pe <= 0:
		notes = append(notes, "no trailing PE (unprofitable or unreported)")
	case pe < 15:
		notes = append(notes, fmt.Sprintf("PE %.1f below market average", pe))
		confidence += 0.2
	case pe <= 40:
		notes = append(notes, fmt.Sprintf("PE %.1f in normal range", pe))
		confidence += 0.2
	default:
		notes = append(notes, fmt.Sprintf("PE %.1f richly valued", pe))
		confidence += 0.2
	}

	if high > low && low > 0 {
		position := (price - low) / (high - low) * 100
		switch {
		case position >= 85:
			notes = append(notes, fmt.Sprintf("near 52-week high (%.0f%% of range)", position))
		case position <= 15:
			notes = append(notes, fmt.Sprintf("near 52-week low (%.0f%% of range)", position))
		default:
			notes = append(notes, fmt.Sprintf("at %.0f%% of 52-week range", position))
		}
		confidence += 0.2
	}

	conclusion := fmt.Sprintf("%s at %.2f", name, price)
	if len(notes) > 0 {
		conclusion += ": " + strings.Join(notes, ", ")
	}

	return core.Finding{
		AgentKind:   f.Kind(),
		Subject:     subject.Symbol,
		DerivedFrom: observationIDs(obs),
		Conclusion:  conclusion,
		Confidence:  clamp(confidence),
		ProducedAt:  time.Now().UTC(),
	}, nil
}
