package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Technical reads the indicator snapshot from the price connector and the
// intraday tick stream: RSI bands, position against moving averages, and day
// change. Without a snapshot it falls back to raw bars.
type Technical struct{}

// NewTechnical creates the technical analyst.
func NewTechnical() *Technical { return &Technical{} }

func (t *Technical) Kind() core.Dimension { return core.DimensionTechnical }

// Evaluate derives a trend reading from the indicator snapshot.
func (t *Technical) Evaluate(ctx context.Context, subject core.Subject, obs []core.Observation, memories []memory.Entry) (core.Finding, error) {
	if err := requireObservations(t.Kind(), obs); err != nil {
		return core.Finding{}, err
	}

	snapshot, ok := findSnapshot(obs)
	if !ok {
		return core.Finding{}, core.NewAgentError(t.Kind(), core.AgentInsufficientData,
			fmt.Errorf("no indicator snapshot among %d observations", len(obs)))
	}

	close, _ := snapshot.PayloadFloat("close")
	changePct, _ := snapshot.PayloadFloat("change_pct")
	ma20, _ := snapshot.PayloadFloat("ma20")
	ma50, _ := snapshot.PayloadFloat("ma50")
	rsi, _ := snapshot.PayloadFloat("rsi14")
	bars, _ := snapshot.PayloadFloat("bars")

	var signals []string
	score := 0

	switch {
	case rsi >= 70:
		signals = append(signals, fmt.Sprintf("RSI %.1f overbought", rsi))
		score--
	case rsi > 0 && rsi <= 30:
		signals = append(signals, fmt.Sprintf("RSI %.1f oversold", rsi))
		score++
	case rsi > 0:
		signals = append(signals, fmt.Sprintf("RSI %.1f neutral", rsi))
	}

	if ma20 > 0 {
		if close > ma20 {
			signals = append(signals, "above MA20")
			score++
		} else {
			signals = append(signals, "below MA20")
			score--
		}
	}
	if ma50 > 0 {
		if close > ma50 {
			signals = append(signals, "above MA50")
			score++
		} else {
			signals = append(signals, "below MA50")
			score--
		}
	}

	if changePct >= 2 {
		signals = append(signals, fmt.Sprintf("up %.2f%% on the day", changePct))
		score++
	} else if changePct <= -2 {
		signals = append(signals, fmt.Sprintf("down %.2f%% on the day", changePct))
		score--
	}

	var trend string
	switch {
	case score >= 2:
		trend = "bullish trend"
	case score <= -2:
		trend = "bearish trend"
	default:
		trend = "sideways trend"
	}

	// Confidence grows with signal agreement and series depth, capped so a
	// heuristic read never claims certainty.
	confidence := 0.3
	if len(signals) > 0 {
		confidence += 0.5 * float64(abs(score)) / float64(len(signals))
	}
	if bars >= 50 {
		confidence += 0.1
	}
	confidence = clamp(confidence)

	conclusion := fmt.Sprintf("%s at %.2f", trend, close)
	if len(signals) > 0 {
		conclusion += ": " + strings.Join(signals, ", ")
	}

	return core.Finding{
		AgentKind:   t.Kind(),
		Subject:     subject.Symbol,
		DerivedFrom: observationIDs(obs),
		Conclusion:  conclusion,
		Confidence:  confidence,
		ProducedAt:  time.Now().UTC(),
	}, nil
}

// findSnapshot locates the indicator snapshot among per-bar and tick
// observations.
func findSnapshot(obs []core.Observation) (core.Observation, bool) {
	for _, o := range obs {
		if o.PayloadString("kind") == "indicator_snapshot" {
			return o, true
		}
	}
	return core.Observation{}, false
}
