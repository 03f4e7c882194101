package core

import (
	"fmt"
	"strings"
	"time"
)

// Dimension is one analysis axis. The set is closed: agents are dispatched
// through a lookup table keyed by Dimension, never by reflection.
type Dimension string

const (
	DimensionFundamental Dimension = "fundamental"
	DimensionTechnical   Dimension = "technical"
	DimensionSentiment   Dimension = "sentiment"
	DimensionFilings     Dimension = "filings"

	// DimensionSynthesis tags the terminal synthesizer output. It is not an
	// enabled_dimensions value; it exists so the memo finding carries a kind.
	DimensionSynthesis Dimension = "synthesis"
)

// AllDimensions lists every enabled-dimension candidate in stable order.
var AllDimensions = []Dimension{
	DimensionFundamental,
	DimensionTechnical,
	DimensionSentiment,
	DimensionFilings,
}

// Source identifies which connector produced an observation.
type Source string

const (
	SourceNews         Source = "news"
	SourceFilings      Source = "filings"
	SourceSentiment    Source = "sentiment"
	SourcePrices       Source = "prices"
	SourceFundamentals Source = "fundamentals"
	SourceLiveQuotes   Source = "live_quotes"
	SourceFixture      Source = "fixture"
)

// Subject is the entity being analyzed in one run: a ticker symbol plus the
// analysis timestamp. Immutable once created.
type Subject struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
}

// NewSubject normalizes and validates a symbol. The symbol is uppercased so
// lookups and memory keys are case-insensitive for the caller.
func NewSubject(symbol string, asOf time.Time) (Subject, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Subject{}, &OrchestrationError{
			Kind:   ConfigInvalid,
			Detail: "subject symbol must be non-empty",
		}
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return Subject{Symbol: symbol, AsOf: asOf}, nil
}

// Validate reports whether the subject was built through NewSubject (or an
// equivalent well-formed literal).
func (s Subject) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return &OrchestrationError{Kind: ConfigInvalid, Detail: "subject symbol must be non-empty"}
	}
	if s.Symbol != strings.ToUpper(s.Symbol) {
		return &OrchestrationError{Kind: ConfigInvalid, Detail: fmt.Sprintf("subject symbol %q must be uppercase", s.Symbol)}
	}
	return nil
}

func (s Subject) String() string {
	return fmt.Sprintf("%s@%s", s.Symbol, s.AsOf.Format(time.RFC3339))
}
