package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

const (
	defaultEdgarDataURL   = "https://data.sec.gov"
	defaultEdgarTickerURL = "https://www.sec.gov/files/company_tickers.json"

	// maxFilings caps how many recent filings become observations.
	maxFilings = 10
)

// FilingsConfig selects the EDGAR endpoints. UserAgent is required by the
// SEC's fair-access policy; supply a contact string.
type FilingsConfig struct {
	DataBaseURL string
	TickerURL   string
	UserAgent   string
}

// Filings fetches a company's recent SEC filings from EDGAR. Feeds the
// filings dimension. The ticker-to-CIK map is resolved once and cached for
// the connector's lifetime; the map file changes rarely.
type Filings struct {
	cfg    FilingsConfig
	client *http.Client

	mu   sync.Mutex
	ciks map[string]int64
}

// NewFilings creates the EDGAR connector.
func NewFilings(cfg FilingsConfig) *Filings {
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = defaultEdgarDataURL
	}
	if cfg.TickerURL == "" {
		cfg.TickerURL = defaultEdgarTickerURL
	}
	return &Filings{cfg: cfg, client: &http.Client{}}
}

func (f *Filings) Source() core.Source       { return core.SourceFilings }
func (f *Filings) Dimension() core.Dimension { return core.DimensionFilings }

type submissionsResponse struct {
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			AccessionNumber []string `json:"accessionNumber"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Fetch returns one observation per filing dated inside the window.
func (f *Filings) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	cik, err := f.resolveCIK(ctx, subject.Symbol)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/submissions/CIK%010d.json", f.cfg.DataBaseURL, cik)
	var parsed submissionsResponse
	if err := f.getJSON(ctx, url, &parsed); err != nil {
		return nil, err
	}

	recent := parsed.Filings.Recent
	var obs []core.Observation
	for i := range recent.Form {
		if len(obs) >= maxFilings {
			break
		}
		filedAt, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		if filedAt.Before(window.Start) || filedAt.After(window.End) {
			continue
		}
		payload := map[string]any{
			"form":     recent.Form[i],
			"filed_at": recent.FilingDate[i],
		}
		if i < len(recent.AccessionNumber) {
			payload["accession"] = recent.AccessionNumber[i]
		}
		if i < len(recent.PrimaryDocument) {
			payload["document"] = recent.PrimaryDocument[i]
		}
		obs = append(obs, core.NewObservation(core.SourceFilings, subject.Symbol, filedAt, payload, 0.9))
	}
	return obs, nil
}

func (f *Filings) resolveCIK(ctx context.Context, symbol string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ciks == nil {
		// EDGAR's map file is keyed by arbitrary indexes.
		var raw map[string]struct {
			CIK    int64  `json:"cik_str"`
			Ticker string `json:"ticker"`
		}
		if err := f.getJSON(ctx, f.cfg.TickerURL, &raw); err != nil {
			return 0, err
		}
		f.ciks = make(map[string]int64, len(raw))
		for _, entry := range raw {
			f.ciks[strings.ToUpper(entry.Ticker)] = entry.CIK
		}
	}

	cik, ok := f.ciks[symbol]
	if !ok {
		return 0, core.NewConnectorError(core.SourceFilings, core.ConnectorUnavailable,
			fmt.Errorf("no CIK for ticker %s", symbol))
	}
	return cik, nil
}

func (f *Filings) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.NewConnectorError(core.SourceFilings, core.ConnectorUnavailable, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyHTTPError(core.SourceFilings, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(core.SourceFilings, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewConnectorError(core.SourceFilings, core.ConnectorUnavailable, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
