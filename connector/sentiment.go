package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

const defaultSentimentBaseURL = "https://api.stocktwits.com"

// maxMessages caps how many stream messages become observations.
const maxMessages = 30

// SentimentConfig selects the social stream endpoint.
type SentimentConfig struct {
	BaseURL string // default https://api.stocktwits.com
}

// Sentiment fetches the subject's social message stream. Feeds the sentiment
// dimension alongside news headlines.
type Sentiment struct {
	cfg    SentimentConfig
	client *http.Client
}

// NewSentiment creates the social sentiment connector.
func NewSentiment(cfg SentimentConfig) *Sentiment {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSentimentBaseURL
	}
	return &Sentiment{cfg: cfg, client: &http.Client{}}
}

func (s *Sentiment) Source() core.Source       { return core.SourceSentiment }
func (s *Sentiment) Dimension() core.Dimension { return core.DimensionSentiment }

type streamResponse struct {
	Messages []struct {
		Body      string `json:"body"`
		CreatedAt string `json:"created_at"`
		Entities  struct {
			Sentiment *struct {
				Basic string `json:"basic"` // "Bullish" or "Bearish"
			} `json:"sentiment"`
		} `json:"entities"`
	} `json:"messages"`
}

// Fetch returns one observation per in-window message. Messages carrying an
// explicit Bullish/Bearish label get a normalized "label" payload field.
func (s *Sentiment) Fetch(ctx context.Context, subject core.Subject, window Window) ([]core.Observation, error) {
	url := fmt.Sprintf("%s/api/2/streams/symbol/%s.json", s.cfg.BaseURL, subject.Symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewConnectorError(core.SourceSentiment, core.ConnectorUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(core.SourceSentiment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(core.SourceSentiment, resp.StatusCode)
	}

	var parsed streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewConnectorError(core.SourceSentiment, core.ConnectorUnavailable, fmt.Errorf("decode response: %w", err))
	}

	var obs []core.Observation
	for _, msg := range parsed.Messages {
		if len(obs) >= maxMessages {
			break
		}
		createdAt, err := time.Parse("2006-01-02T15:04:05Z", msg.CreatedAt)
		if err != nil {
			createdAt = window.End
		}
		if createdAt.Before(window.Start) || createdAt.After(window.End) {
			continue
		}
		payload := map[string]any{"body": msg.Body}
		if msg.Entities.Sentiment != nil {
			payload["label"] = strings.ToLower(msg.Entities.Sentiment.Basic)
		}
		obs = append(obs, core.NewObservation(core.SourceSentiment, subject.Symbol, createdAt, payload, 0.5))
	}
	return obs, nil
}
