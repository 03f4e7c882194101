package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com"

// maxBars caps how many per-bar observations the connector emits; the
// indicator snapshot always uses the full series.
const maxBars = 10

// PricesConfig selects the chart endpoint.
type PricesConfig struct {
	BaseURL string // default https://query1.finance.yahoo.com
}

// Prices fetches a daily OHLCV series and derives the indicator snapshot
// (MA20, MA50, RSI14, day change). Feeds the technical dimension.
type Prices struct {
	cfg    PricesConfig
	client *http.Client
}

// NewPrices creates the price-series connector.
func NewPrices(cfg PricesConfig) *Prices {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultChartBaseURL
	}
	return &Prices{cfg: cfg, client: &http.Client{}}
}

func (p *Prices) Source() core.Source       { return core.SourcePrices }
func (p *Prices) Dimension() core.Dimension { return core.DimensionTechnical }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Fetch returns per-bar observations for the window's tail plus one
// indicator snapshot observation computed over the whole series.
func (p *Prices) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(window.Start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(window.End.Unix(), 10))
	q.Set("interval", "1d")

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.cfg.BaseURL, url.PathEscape(subject.Symbol), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.NewConnectorError(core.SourcePrices, core.ConnectorUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(core.SourcePrices, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(core.SourcePrices, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewConnectorError(core.SourcePrices, core.ConnectorUnavailable, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, core.NewConnectorError(core.SourcePrices, core.ConnectorUnavailable, fmt.Errorf("no chart data"))
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	closes := quote.Close
	if len(closes) == 0 {
		return nil, core.NewConnectorError(core.SourcePrices, core.ConnectorUnavailable, fmt.Errorf("empty close series"))
	}

	var obs []core.Observation

	// Per-bar observations for the most recent bars.
	start := len(closes) - maxBars
	if start < 0 {
		start = 0
	}
	for i := start; i < len(closes); i++ {
		capturedAt := window.End
		if i < len(result.Timestamp) {
			capturedAt = time.Unix(result.Timestamp[i], 0).UTC()
		}
		payload := map[string]any{"close": closes[i]}
		if i < len(quote.Open) {
			payload["open"] = quote.Open[i]
		}
		if i < len(quote.High) {
			payload["high"] = quote.High[i]
		}
		if i < len(quote.Low) {
			payload["low"] = quote.Low[i]
		}
		if i < len(quote.Volume) {
			payload["volume"] = quote.Volume[i]
		}
		obs = append(obs, core.NewObservation(core.SourcePrices, subject.Symbol, capturedAt, payload, 0.9))
	}

	// Indicator snapshot over the full series.
	last := closes[len(closes)-1]
	prev := last
	if len(closes) > 1 {
		prev = closes[len(closes)-2]
	}
	snapshot := map[string]any{
		"kind":       "indicator_snapshot",
		"close":      last,
		"prev_close": prev,
		"change_pct": ChangePercent(prev, last),
		"ma20":       SMA(closes, 20),
		"ma50":       SMA(closes, 50),
		"rsi14":      RSI(closes, 14),
		"bars":       float64(len(closes)),
	}
	obs = append(obs, core.NewObservation(core.SourcePrices, subject.Symbol, window.End, snapshot, 0.9))

	return obs, nil
}
