package connector

import (
	"context"

	"github.com/stocksense/stocksense-go/core"
)

// Fixture replays canned observations, or a canned error, for offline demo
// runs and tests. It satisfies the same idempotence contract as the real
// connectors: the same (subject, window) always yields the same result.
type Fixture struct {
	source    core.Source
	dimension core.Dimension
	payloads  []map[string]any
	err       error
}

// NewFixture builds a connector that emits one observation per payload.
func NewFixture(source core.Source, dimension core.Dimension, payloads []map[string]any) *Fixture {
	return &Fixture{source: source, dimension: dimension, payloads: payloads}
}

// NewFailingFixture builds a connector that always fails with the given
// connector error kind.
func NewFailingFixture(source core.Source, dimension core.Dimension, kind core.ConnectorErrorKind) *Fixture {
	return &Fixture{
		source:    source,
		dimension: dimension,
		err:       core.NewConnectorError(source, kind, nil),
	}
}

func (f *Fixture) Source() core.Source       { return f.source }
func (f *Fixture) Dimension() core.Dimension { return f.dimension }

// Fetch returns the canned observations stamped inside the window.
func (f *Fixture) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	obs := make([]core.Observation, 0, len(f.payloads))
	for _, p := range f.payloads {
		obs = append(obs, core.NewObservation(f.source, subject.Symbol, window.End, p, 0.9))
	}
	return obs, nil
}
