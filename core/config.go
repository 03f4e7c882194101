package core

import (
	"fmt"
	"time"
)

// Config enumerates what a single orchestrated run is allowed to do. It is
// supplied by the external caller (CLI, scheduler) per run.
type Config struct {
	// EnabledDimensions selects which analysis axes run. Empty means all.
	EnabledDimensions []Dimension

	// PerSourceTimeout bounds each connector fetch. A fetch exceeding it
	// yields a source-unavailable marker, never a run failure.
	PerSourceTimeout time.Duration

	// MaxConcurrency bounds the fetch fan-out.
	MaxConcurrency int

	// MemoryTopK is how many prior memory entries are recalled as context
	// for the synthesizer. Zero disables recall (append still happens).
	MemoryTopK int

	// RunTimeout bounds the whole run. Zero means no run-level deadline.
	RunTimeout time.Duration
}

// DefaultConfig enables all
// dimensions with a 15s per-source timeout and modest fan-out.
func DefaultConfig() Config {
	return Config{
		EnabledDimensions: append([]Dimension(nil), AllDimensions...),
		PerSourceTimeout:  15 * time.Second,
		MaxConcurrency:    4,
		MemoryTopK:        5,
	}
}

// Validate rejects configurations the orchestrator cannot honor.
func (c Config) Validate() error {
	if c.PerSourceTimeout <= 0 {
		return &OrchestrationError{Kind: ConfigInvalid, Detail: "per-source timeout must be positive"}
	}
	if c.MaxConcurrency <= 0 {
		return &OrchestrationError{Kind: ConfigInvalid, Detail: "max concurrency must be positive"}
	}
	if c.MemoryTopK < 0 {
		return &OrchestrationError{Kind: ConfigInvalid, Detail: "memory top-k must be >= 0"}
	}
	for _, d := range c.EnabledDimensions {
		if !validDimension(d) {
			return &OrchestrationError{Kind: ConfigInvalid, Detail: fmt.Sprintf("unknown dimension %q", d)}
		}
	}
	return nil
}

// Dimensions returns the enabled set, defaulting to all dimensions.
func (c Config) Dimensions() []Dimension {
	if len(c.EnabledDimensions) == 0 {
		return append([]Dimension(nil), AllDimensions...)
	}
	return c.EnabledDimensions
}

// DimensionEnabled reports whether a dimension participates in this run.
func (c Config) DimensionEnabled(d Dimension) bool {
	for _, e := range c.Dimensions() {
		if e == d {
			return true
		}
	}
	return false
}

func validDimension(d Dimension) bool {
	for _, known := range AllDimensions {
		if d == known {
			return true
		}
	}
	return false
}
