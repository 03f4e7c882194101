// Package connector fetches raw market signals from external sources and
// normalizes them into core.Observations. Every variant implements the same
// contract; the orchestrator is agnostic to which variant produced an
// observation beyond its source tag.
//
// Connectors are idempotent for the same (subject, window) and never mutate
// shared state, which is what makes the caching wrapper sound.
package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

// Window bounds a fetch in time. End is exclusive enough for our purposes;
// all sources treat it as "up to this instant".
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowForPeriod converts a CLI period string
// ("1d", "5d", "1mo", "3mo", "6mo", "1y", "5y") into a window ending at asOf.
func WindowForPeriod(period string, asOf time.Time) (Window, error) {
	var span time.Duration
	switch period {
	case "1d":
		span = 24 * time.Hour
	case "5d":
		span = 5 * 24 * time.Hour
	case "1mo":
		span = 30 * 24 * time.Hour
	case "3mo":
		span = 90 * 24 * time.Hour
	case "6mo":
		span = 180 * 24 * time.Hour
	case "1y":
		span = 365 * 24 * time.Hour
	case "5y":
		span = 5 * 365 * 24 * time.Hour
	default:
		return Window{}, fmt.Errorf("unknown period %q", period)
	}
	return Window{Start: asOf.Add(-span), End: asOf}, nil
}

// Key returns a stable cache key component for the window.
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.Unix(), w.End.Unix())
}

// Duration is the window span.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Connector is the uniform fetch contract. Implementations return typed,
// timestamped observations or a *core.ConnectorError; they never abort a run.
type Connector interface {
	// Source tags the observations this connector produces.
	Source() core.Source

	// Dimension is the analysis axis this connector's observations feed.
	Dimension() core.Dimension

	// Fetch returns observations for the subject inside the window.
	Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error)
}

// classifyHTTPError maps transport failures onto the connector error
// taxonomy. Context deadlines read as Timeout, HTTP 429 as RateLimited,
// everything else as Unavailable.
func classifyHTTPError(source core.Source, err error) *core.ConnectorError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewConnectorError(source, core.ConnectorTimeout, err)
	}
	return core.NewConnectorError(source, core.ConnectorUnavailable, err)
}

// classifyHTTPStatus maps non-2xx responses onto the taxonomy.
func classifyHTTPStatus(source core.Source, status int) *core.ConnectorError {
	err := fmt.Errorf("unexpected status %d", status)
	switch status {
	case http.StatusTooManyRequests:
		return core.NewConnectorError(source, core.ConnectorRateLimited, err)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return core.NewConnectorError(source, core.ConnectorTimeout, err)
	default:
		return core.NewConnectorError(source, core.ConnectorUnavailable, err)
	}
}
