package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stocksense/stocksense-go/core"
)

// LiveQuotesConfig selects the quote stream endpoint.
type LiveQuotesConfig struct {
	// URL is the websocket endpoint, e.g. wss://stream.example.com/quotes.
	URL string

	// Listen bounds how long the connector collects ticks per fetch.
	// Defaults to 5s; the per-source timeout still applies on top.
	Listen time.Duration
}

// LiveQuotes subscribes to a realtime quote stream over websocket and
// collects ticks for the window's tail. Supplements the daily price series
// on the technical dimension with intraday data.
type LiveQuotes struct {
	cfg    LiveQuotesConfig
	dialer *websocket.Dialer
}

// NewLiveQuotes creates the streaming connector.
func NewLiveQuotes(cfg LiveQuotesConfig) *LiveQuotes {
	if cfg.Listen <= 0 {
		cfg.Listen = 5 * time.Second
	}
	return &LiveQuotes{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (l *LiveQuotes) Source() core.Source       { return core.SourceLiveQuotes }
func (l *LiveQuotes) Dimension() core.Dimension { return core.DimensionTechnical }

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type tickMessage struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	TS     int64   `json:"ts"`
}

// Fetch dials the stream, subscribes to the subject, and turns every tick
// received inside the listen budget into an observation. A stream that
// delivers nothing before the deadline is not an error; an unreachable
// stream is.
func (l *LiveQuotes) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	if l.cfg.URL == "" {
		return nil, core.NewConnectorError(core.SourceLiveQuotes, core.ConnectorUnavailable, fmt.Errorf("stream URL not configured"))
	}

	conn, _, err := l.dialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return nil, classifyHTTPError(core.SourceLiveQuotes, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Symbol: subject.Symbol}); err != nil {
		return nil, core.NewConnectorError(core.SourceLiveQuotes, core.ConnectorUnavailable, fmt.Errorf("subscribe: %w", err))
	}

	deadline := time.Now().Add(l.cfg.Listen)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var obs []core.Observation
	for time.Now().Before(deadline) {
		var tick tickMessage
		if err := conn.ReadJSON(&tick); err != nil {
			// Deadline expiry ends collection; anything received so far
			// still counts.
			break
		}
		if tick.Symbol != "" && tick.Symbol != subject.Symbol {
			continue
		}
		ts := time.Unix(tick.TS, 0).UTC()
		if tick.TS == 0 {
			ts = time.Now().UTC()
		}
		obs = append(obs, core.NewObservation(core.SourceLiveQuotes, subject.Symbol, ts, map[string]any{
			"kind":   "tick",
			"price":  tick.Price,
			"volume": tick.Volume,
		}, 0.8))
	}
	return obs, nil
}
