package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

func testSubject(t *testing.T, symbol string) core.Subject {
	t.Helper()
	subject, err := core.NewSubject(symbol, time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSubject: %v", err)
	}
	return subject
}

func testWindow(t *testing.T, subject core.Subject, period string) Window {
	t.Helper()
	window, err := WindowForPeriod(period, subject.AsOf)
	if err != nil {
		t.Fatalf("WindowForPeriod: %v", err)
	}
	return window
}

func TestWindowForPeriod(t *testing.T) {
	asOf := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)

	window, err := WindowForPeriod("1mo", asOf)
	if err != nil {
		t.Fatalf("WindowForPeriod: %v", err)
	}
	if !window.End.Equal(asOf) {
		t.Errorf("window end = %v, want %v", window.End, asOf)
	}
	if window.Duration() != 30*24*time.Hour {
		t.Errorf("window duration = %v, want 720h", window.Duration())
	}

	if _, err := WindowForPeriod("2w", asOf); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestNewsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "AAPL" {
			t.Errorf("query symbol = %q, want AAPL", got)
		}
		if got := r.URL.Query().Get("apiKey"); got != "test-key" {
			t.Errorf("apiKey = %q, want test-key", got)
		}
		fmt.Fprint(w, `{
			"status": "ok",
			"articles": [
				{"title": "Apple beats estimates", "description": "Strong quarter", "url": "https://example.com/1", "publishedAt": "2024-06-13T09:00:00Z", "source": {"name": "Wire"}},
				{"title": "Apple launches product", "description": "", "url": "https://example.com/2", "publishedAt": "2024-06-12T09:00:00Z", "source": {"name": "Blog"}}
			]
		}`)
	}))
	defer srv.Close()

	news := NewNews(NewsConfig{APIKey: "test-key", BaseURL: srv.URL})
	subject := testSubject(t, "aapl")
	window := testWindow(t, subject, "1mo")

	obs, err := news.Fetch(context.Background(), subject, window)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if obs[0].Source != core.SourceNews {
		t.Errorf("source = %q, want %q", obs[0].Source, core.SourceNews)
	}
	if obs[0].Subject != "AAPL" {
		t.Errorf("subject = %q, want AAPL", obs[0].Subject)
	}
	if got := obs[0].PayloadString("title"); got != "Apple beats estimates" {
		t.Errorf("title = %q", got)
	}
	if got := obs[0].PayloadString("outlet"); got != "Wire" {
		t.Errorf("outlet = %q", got)
	}
}

func TestNewsFetchCapsArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ok", "articles": [`)
		for i := 0; i < 8; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"title": "headline %d", "publishedAt": "2024-06-13T09:00:00Z", "source": {"name": "Wire"}}`, i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer srv.Close()

	news := NewNews(NewsConfig{BaseURL: srv.URL})
	subject := testSubject(t, "AAPL")

	obs, err := news.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != maxArticles {
		t.Errorf("got %d observations, want %d", len(obs), maxArticles)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   core.ConnectorErrorKind
	}{
		{http.StatusTooManyRequests, core.ConnectorRateLimited},
		{http.StatusGatewayTimeout, core.ConnectorTimeout},
		{http.StatusInternalServerError, core.ConnectorUnavailable},
		{http.StatusNotFound, core.ConnectorUnavailable},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		news := NewNews(NewsConfig{BaseURL: srv.URL})
		subject := testSubject(t, "AAPL")
		_, err := news.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
		srv.Close()

		var ce *core.ConnectorError
		if !errors.As(err, &ce) {
			t.Fatalf("status %d: error %v is not a ConnectorError", tt.status, err)
		}
		if ce.Kind != tt.want {
			t.Errorf("status %d: kind = %q, want %q", tt.status, ce.Kind, tt.want)
		}
	}
}

func TestFetchTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	news := NewNews(NewsConfig{BaseURL: srv.URL})
	subject := testSubject(t, "AAPL")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := news.Fetch(ctx, subject, testWindow(t, subject, "1mo"))
	var ce *core.ConnectorError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a ConnectorError", err)
	}
	if ce.Kind != core.ConnectorTimeout {
		t.Errorf("kind = %q, want %q", ce.Kind, core.ConnectorTimeout)
	}
	if got := core.ConnectorErrorCause(err); got != "Timeout" {
		t.Errorf("cause = %q, want Timeout", got)
	}
}

func TestSentimentFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2/streams/symbol/TSLA.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"messages": [
				{"body": "to the moon", "created_at": "2024-06-13T10:00:00Z", "entities": {"sentiment": {"basic": "Bullish"}}},
				{"body": "selling everything", "created_at": "2024-06-12T10:00:00Z", "entities": {"sentiment": {"basic": "Bearish"}}},
				{"body": "no opinion", "created_at": "2024-06-11T10:00:00Z", "entities": {}},
				{"body": "stale message", "created_at": "2023-01-01T10:00:00Z", "entities": {}}
			]
		}`)
	}))
	defer srv.Close()

	sentiment := NewSentiment(SentimentConfig{BaseURL: srv.URL})
	subject := testSubject(t, "TSLA")

	obs, err := sentiment.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3 (stale message excluded)", len(obs))
	}
	if got := obs[0].PayloadString("label"); got != "bullish" {
		t.Errorf("label = %q, want bullish", got)
	}
	if got := obs[1].PayloadString("label"); got != "bearish" {
		t.Errorf("label = %q, want bearish", got)
	}
	if got := obs[2].PayloadString("label"); got != "" {
		t.Errorf("unlabeled message label = %q, want empty", got)
	}
}

func TestPricesFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/MSFT" {
			t.Errorf("path = %q", r.URL.Path)
		}
		// 30 rising daily closes.
		timestamps := ""
		closes := ""
		base := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 30; i++ {
			if i > 0 {
				timestamps += ","
				closes += ","
			}
			timestamps += fmt.Sprintf("%d", base.AddDate(0, 0, i).Unix())
			closes += fmt.Sprintf("%d", 100+i)
		}
		fmt.Fprintf(w, `{"chart": {"result": [{"timestamp": [%s], "indicators": {"quote": [{"close": [%s]}]}}]}}`, timestamps, closes)
	}))
	defer srv.Close()

	prices := NewPrices(PricesConfig{BaseURL: srv.URL})
	subject := testSubject(t, "MSFT")

	obs, err := prices.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// maxBars per-bar observations plus one snapshot.
	if len(obs) != maxBars+1 {
		t.Fatalf("got %d observations, want %d", len(obs), maxBars+1)
	}

	snapshot := obs[len(obs)-1]
	if got := snapshot.PayloadString("kind"); got != "indicator_snapshot" {
		t.Fatalf("last observation kind = %q, want indicator_snapshot", got)
	}
	if got, _ := snapshot.PayloadFloat("close"); got != 129 {
		t.Errorf("close = %v, want 129", got)
	}
	if got, _ := snapshot.PayloadFloat("rsi14"); got != 100 {
		t.Errorf("rsi14 = %v, want 100 for monotonic gains", got)
	}
	if got, _ := snapshot.PayloadFloat("ma20"); got != 119.5 {
		t.Errorf("ma20 = %v, want 119.5", got)
	}
	if got, _ := snapshot.PayloadFloat("ma50"); got != 0 {
		t.Errorf("ma50 = %v, want 0 with only 30 bars", got)
	}
}

func TestPricesFetchEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": []}}`)
	}))
	defer srv.Close()

	prices := NewPrices(PricesConfig{BaseURL: srv.URL})
	subject := testSubject(t, "MSFT")

	_, err := prices.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	var ce *core.ConnectorError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a ConnectorError", err)
	}
	if ce.Kind != core.ConnectorUnavailable {
		t.Errorf("kind = %q, want %q", ce.Kind, core.ConnectorUnavailable)
	}
}

func TestFundamentalsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "NVDA" {
			t.Errorf("symbols = %q, want NVDA", got)
		}
		fmt.Fprint(w, `{"quoteResponse": {"result": [{
			"longName": "NVIDIA Corporation",
			"regularMarketPrice": 120.5,
			"regularMarketPreviousClose": 118.0,
			"marketCap": 2960000000000,
			"trailingPE": 70.2,
			"fiftyTwoWeekHigh": 140.76,
			"fiftyTwoWeekLow": 39.23
		}]}}`)
	}))
	defer srv.Close()

	fundamentals := NewFundamentals(FundamentalsConfig{BaseURL: srv.URL})
	subject := testSubject(t, "NVDA")

	obs, err := fundamentals.Fetch(context.Background(), subject, testWindow(t, subject, "1d"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}
	if got := obs[0].PayloadString("name"); got != "NVIDIA Corporation" {
		t.Errorf("name = %q", got)
	}
	if got, _ := obs[0].PayloadFloat("pe_ratio"); got != 70.2 {
		t.Errorf("pe_ratio = %v, want 70.2", got)
	}
	if got, _ := obs[0].PayloadFloat("high_52w"); got != 140.76 {
		t.Errorf("high_52w = %v, want 140.76", got)
	}
}

func TestFilingsFetch(t *testing.T) {
	dataSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tickers.json":
			fmt.Fprint(w, `{"0": {"cik_str": 320193, "ticker": "AAPL"}}`)
		case "/submissions/CIK0000320193.json":
			if got := r.Header.Get("User-Agent"); got != "stocksense test@example.com" {
				t.Errorf("User-Agent = %q", got)
			}
			fmt.Fprint(w, `{"filings": {"recent": {
				"form": ["10-Q", "8-K", "4"],
				"filingDate": ["2024-06-10", "2024-06-01", "2023-01-05"],
				"accessionNumber": ["0000320193-24-000069", "0000320193-24-000060", "0000320193-23-000004"],
				"primaryDocument": ["aapl-20240610.htm", "aapl-20240601.htm", "xslF345X05/wk-form4.xml"]
			}}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer dataSrv.Close()

	filings := NewFilings(FilingsConfig{
		DataBaseURL: dataSrv.URL,
		TickerURL:   dataSrv.URL + "/tickers.json",
		UserAgent:   "stocksense test@example.com",
	})
	subject := testSubject(t, "AAPL")

	obs, err := filings.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2 (out-of-window filing excluded)", len(obs))
	}
	if got := obs[0].PayloadString("form"); got != "10-Q" {
		t.Errorf("form = %q, want 10-Q", got)
	}
	if got := obs[1].PayloadString("form"); got != "8-K" {
		t.Errorf("form = %q, want 8-K", got)
	}
}

func TestFilingsUnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"0": {"cik_str": 320193, "ticker": "AAPL"}}`)
	}))
	defer srv.Close()

	filings := NewFilings(FilingsConfig{DataBaseURL: srv.URL, TickerURL: srv.URL})
	subject := testSubject(t, "ZZZZ")

	_, err := filings.Fetch(context.Background(), subject, testWindow(t, subject, "1mo"))
	var ce *core.ConnectorError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a ConnectorError", err)
	}
	if ce.Kind != core.ConnectorUnavailable {
		t.Errorf("kind = %q, want %q", ce.Kind, core.ConnectorUnavailable)
	}
}

func TestCachedFetch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"status": "ok", "articles": [{"title": "cached headline", "publishedAt": "2024-06-13T09:00:00Z", "source": {"name": "Wire"}}]}`)
	}))
	defer srv.Close()

	cached, err := NewCached(NewNews(NewsConfig{BaseURL: srv.URL}), time.Minute)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer cached.Close()

	subject := testSubject(t, "AAPL")
	window := testWindow(t, subject, "1mo")

	first, err := cached.Fetch(context.Background(), subject, window)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second, err := cached.Fetch(context.Background(), subject, window)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1", got)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("lengths = %d, %d, want 1, 1", len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Error("cached fetch returned different observations")
	}

	// A different window is a different cache entry.
	other := testWindow(t, subject, "5d")
	if _, err := cached.Fetch(context.Background(), subject, other); err != nil {
		t.Fatalf("third Fetch: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("upstream hits after new window = %d, want 2", got)
	}
}

func TestCachedFetchDoesNotCacheErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"status": "ok", "articles": []}`)
	}))
	defer srv.Close()

	cached, err := NewCached(NewNews(NewsConfig{BaseURL: srv.URL}), time.Minute)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer cached.Close()

	subject := testSubject(t, "AAPL")
	window := testWindow(t, subject, "1mo")

	if _, err := cached.Fetch(context.Background(), subject, window); err == nil {
		t.Fatal("expected error on first fetch")
	}
	if _, err := cached.Fetch(context.Background(), subject, window); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("upstream hits = %d, want 2 (error not cached)", got)
	}
}

func TestFixture(t *testing.T) {
	fixture := NewFixture(core.SourceFixture, core.DimensionTechnical, []map[string]any{
		{"close": 100.0},
		{"close": 101.0},
	})
	subject := testSubject(t, "AAPL")
	window := testWindow(t, subject, "1d")

	obs, err := fixture.Fetch(context.Background(), subject, window)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if fixture.Dimension() != core.DimensionTechnical {
		t.Errorf("dimension = %q", fixture.Dimension())
	}

	failing := NewFailingFixture(core.SourceFixture, core.DimensionTechnical, core.ConnectorRateLimited)
	_, err = failing.Fetch(context.Background(), subject, window)
	if got := core.ConnectorErrorCause(err); got != "RateLimited" {
		t.Errorf("cause = %q, want RateLimited", got)
	}
}
