package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/memory"
)

// Word lists used to score headlines and messages that carry no explicit
// bullish/bearish label.
var (
	positiveWords = []string{
		"surge", "soar", "rally", "gain", "beat", "upgrade", "bullish",
		"strong", "record", "growth", "profit", "buy", "outperform", "jump",
	}
	negativeWords = []string{
		"fall", "drop", "plunge", "loss", "miss", "downgrade", "bearish",
		"weak", "decline", "lawsuit", "recall", "sell", "underperform", "crash",
	}
)

// Sentiment scores news headlines and social messages into a single market
// mood reading. Confidence tracks how one-sided the signal set is: a split
// bull/bear picture reads as low confidence even with many observations.
type Sentiment struct{}

// NewSentiment creates the sentiment analyst.
func NewSentiment() *Sentiment { return &Sentiment{} }

func (s *Sentiment) Kind() core.Dimension { return core.DimensionSentiment }

// Evaluate tallies polarity across all observations.
func (s *Sentiment) Evaluate(ctx context.Context, subject core.Subject, obs []core.Observation, memories []memory.Entry) (core.Finding, error) {
	if err := requireObservations(s.Kind(), obs); err != nil {
		return core.Finding{}, err
	}

	var bullish, bearish, neutral int
	for _, o := range obs {
		switch scoreObservation(o) {
		case 1:
			bullish++
		case -1:
			bearish++
		default:
			neutral++
		}
	}

	scored := bullish + bearish
	total := scored + neutral

	var label string
	switch {
	case scored == 0:
		label = "neutral"
	case bullish > bearish:
		label = "bullish"
	case bearish > bullish:
		label = "bearish"
	default:
		label = "mixed"
	}

	// Agreement ratio: unanimous polarity approaches 1, an even split
	// approaches 0. Contradicting observations can only lower this.
	confidence := 0.0
	if scored > 0 {
		agreement := float64(abs(bullish-bearish)) / float64(scored)
		coverage := float64(scored) / float64(total)
		confidence = clamp(agreement * coverage)
	}

	conclusion := fmt.Sprintf("%s sentiment: %d bullish, %d bearish, %d neutral across %d signals",
		label, bullish, bearish, neutral, total)

	return core.Finding{
		AgentKind:   s.Kind(),
		Subject:     subject.Symbol,
		DerivedFrom: observationIDs(obs),
		Conclusion:  conclusion,
		Confidence:  confidence,
		ProducedAt:  time.Now().UTC(),
	}, nil
}

// scoreObservation returns +1 bullish, -1 bearish, 0 neutral.
func scoreObservation(o core.Observation) int {
	// Explicit stream labels win over keyword scoring.
	switch o.PayloadString("label") {
	case "bullish":
		return 1
	case "bearish":
		return -1
	}

	text := strings.ToLower(o.PayloadString("title") + " " + o.PayloadString("description") + " " + o.PayloadString("body"))
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			score--
		}
	}
	switch {
	case score > 0:
		return 1
	case score < 0:
		return -1
	default:
		return 0
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
