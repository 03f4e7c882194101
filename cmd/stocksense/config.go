package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/report"
)

// fileConfig is the YAML configuration surface. Every field has a usable
// default so `stocksense analyze --symbol X` works with no file at all.
type fileConfig struct {
	Period           string   `yaml:"period"`
	Dimensions       []string `yaml:"dimensions"`
	PerSourceTimeout string   `yaml:"per_source_timeout"`
	RunTimeout       string   `yaml:"run_timeout"`
	MaxConcurrency   int      `yaml:"max_concurrency"`
	MemoryTopK       int      `yaml:"memory_top_k"`
	CacheTTL         string   `yaml:"cache_ttl"`

	Sources struct {
		NewsAPIKey     string `yaml:"newsapi_key"`
		NewsBaseURL    string `yaml:"news_base_url"`
		EdgarUserAgent string `yaml:"edgar_user_agent"`
		StreamBaseURL  string `yaml:"stream_base_url"`
		ChartBaseURL   string `yaml:"chart_base_url"`
		QuoteWSURL     string `yaml:"quote_ws_url"`
	} `yaml:"sources"`

	Memory struct {
		Backend string `yaml:"backend"` // chromem (in-process) or sqlite
		Path    string `yaml:"path"`    // sqlite file path
		MaxAge  string `yaml:"max_age"` // recall staleness cutoff, e.g. 720h
	} `yaml:"memory"`

	Embedder struct {
		Kind          string `yaml:"kind"` // hash, openai, onnx
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		Model         string `yaml:"model"`
		LibraryPath   string `yaml:"library_path"`
		ModelPath     string `yaml:"model_path"`
		TokenizerPath string `yaml:"tokenizer_path"`
	} `yaml:"embedder"`

	Synthesizer struct {
		Kind  string `yaml:"kind"` // memo (deterministic) or claude
		Model string `yaml:"model"`
	} `yaml:"synthesizer"`

	SMTP           report.SMTPConfig `yaml:"smtp"`
	AlertThreshold float64           `yaml:"alert_threshold"`
}

// defaultFileConfig mirrors core.DefaultConfig plus offline-friendly wiring.
func defaultFileConfig() fileConfig {
	var cfg fileConfig
	cfg.Period = "1mo"
	cfg.MaxConcurrency = 4
	cfg.MemoryTopK = 5
	cfg.PerSourceTimeout = "15s"
	cfg.CacheTTL = "5m"
	cfg.Memory.Backend = "chromem"
	cfg.Embedder.Kind = "hash"
	cfg.Synthesizer.Kind = "memo"
	return cfg
}

// loadConfig reads the YAML file over the defaults. An empty path keeps the
// defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

// runConfig converts the file surface into the engine's core.Config.
func (c fileConfig) runConfig() (core.Config, error) {
	cfg := core.DefaultConfig()
	cfg.MaxConcurrency = c.MaxConcurrency
	cfg.MemoryTopK = c.MemoryTopK

	if len(c.Dimensions) > 0 {
		cfg.EnabledDimensions = nil
		for _, d := range c.Dimensions {
			cfg.EnabledDimensions = append(cfg.EnabledDimensions, core.Dimension(d))
		}
	}

	var err error
	if cfg.PerSourceTimeout, err = parseDuration(c.PerSourceTimeout, 15*time.Second); err != nil {
		return cfg, fmt.Errorf("per_source_timeout: %w", err)
	}
	if cfg.RunTimeout, err = parseDuration(c.RunTimeout, 0); err != nil {
		return cfg, fmt.Errorf("run_timeout: %w", err)
	}
	return cfg, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
