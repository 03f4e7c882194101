package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stocksense/stocksense-go/core"
)

const defaultQuoteBaseURL = "https://query1.finance.yahoo.com"

// FundamentalsConfig selects the quote endpoint.
type FundamentalsConfig struct {
	BaseURL string // default https://query1.finance.yahoo.com
}

// Fundamentals fetches a valuation snapshot: price, previous close, market
// cap, trailing PE, 52-week range. Feeds the fundamental dimension with a
// single observation from the quote summary endpoint.
type Fundamentals struct {
	cfg    FundamentalsConfig
	client *http.Client
}

// NewFundamentals creates the quote-snapshot connector.
func NewFundamentals(cfg FundamentalsConfig) *Fundamentals {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultQuoteBaseURL
	}
	return &Fundamentals{cfg: cfg, client: &http.Client{}}
}

func (f *Fundamentals) Source() core.Source       { return core.SourceFundamentals }
func (f *Fundamentals) Dimension() core.Dimension { return core.DimensionFundamental }

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			LongName              string  `json:"longName"`
			RegularMarketPrice    float64 `json:"regularMarketPrice"`
			RegularMarketPrevious float64 `json:"regularMarketPreviousClose"`
			MarketCap             float64 `json:"marketCap"`
			TrailingPE            float64 `json:"trailingPE"`
			FiftyTwoWeekHigh      float64 `json:"fiftyTwoWeekHigh"`
			FiftyTwoWeekLow       float64 `json:"fiftyTwoWeekLow"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Fetch returns one valuation snapshot observation.
func (f *Fundamentals) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", f.cfg.BaseURL, url.QueryEscape(subject.Symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.NewConnectorError(core.SourceFundamentals, core.ConnectorUnavailable, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(core.SourceFundamentals, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(core.SourceFundamentals, resp.StatusCode)
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewConnectorError(core.SourceFundamentals, core.ConnectorUnavailable, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return nil, core.NewConnectorError(core.SourceFundamentals, core.ConnectorUnavailable, fmt.Errorf("no quote for %s", subject.Symbol))
	}

	r := parsed.QuoteResponse.Result[0]
	payload := map[string]any{
		"name":       r.LongName,
		"price":      r.RegularMarketPrice,
		"prev_close": r.RegularMarketPrevious,
		"market_cap": r.MarketCap,
		"pe_ratio":   r.TrailingPE,
		"high_52w":   r.FiftyTwoWeekHigh,
		"low_52w":    r.FiftyTwoWeekLow,
	}
	return []core.Observation{
		core.NewObservation(core.SourceFundamentals, subject.Symbol, window.End, payload, 0.9),
	}, nil
}
