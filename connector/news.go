package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

const defaultNewsBaseURL = "https://newsapi.org"

// maxArticles caps how many headlines become observations.
const maxArticles = 5

// NewsConfig selects the NewsAPI endpoint and credentials.
type NewsConfig struct {
	APIKey  string
	BaseURL string // default https://newsapi.org
}

// News fetches recent headlines mentioning the subject from a
// NewsAPI-compatible endpoint. Feeds the sentiment dimension.
type News struct {
	cfg    NewsConfig
	client *http.Client
}

// NewNews creates the news connector.
func NewNews(cfg NewsConfig) *News {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNewsBaseURL
	}
	return &News{cfg: cfg, client: &http.Client{}}
}

func (n *News) Source() core.Source       { return core.SourceNews }
func (n *News) Dimension() core.Dimension { return core.DimensionSentiment }

type newsResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch returns one observation per article published inside the window.
func (n *News) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	q := url.Values{}
	q.Set("q", subject.Symbol)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("from", window.Start.Format(time.RFC3339))
	q.Set("to", window.End.Format(time.RFC3339))
	q.Set("apiKey", n.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+"/v2/everything?"+q.Encode(), nil)
	if err != nil {
		return nil, core.NewConnectorError(core.SourceNews, core.ConnectorUnavailable, err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(core.SourceNews, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(core.SourceNews, resp.StatusCode)
	}

	var parsed newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewConnectorError(core.SourceNews, core.ConnectorUnavailable, fmt.Errorf("decode response: %w", err))
	}

	var obs []core.Observation
	for _, a := range parsed.Articles {
		if len(obs) >= maxArticles {
			break
		}
		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			publishedAt = window.End
		}
		obs = append(obs, core.NewObservation(core.SourceNews, subject.Symbol, publishedAt, map[string]any{
			"title":       a.Title,
			"description": a.Description,
			"url":         a.URL,
			"outlet":      a.Source.Name,
		}, 0.7))
	}
	return obs, nil
}
