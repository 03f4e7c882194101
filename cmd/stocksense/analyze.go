package main

import (
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/stocksense/stocksense-go/agent"
	"github.com/stocksense/stocksense-go/connector"
	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/engine"
	"github.com/stocksense/stocksense-go/memory"
	"github.com/stocksense/stocksense-go/memory/store/chromem"
	"github.com/stocksense/stocksense-go/memory/store/sqlite"
	"github.com/stocksense/stocksense-go/report"
)

var analyzeFlags struct {
	symbol     string
	period     string
	configPath string
	save       bool
	saveDir    string
	email      bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Run a full multi-dimension analysis for a ticker",
	Long: `Analyze fans the symbol out to every configured data source, evaluates
one agent per dimension, and prints the synthesized investment memo.

Usage:
  stocksense analyze AAPL
  stocksense analyze --symbol AAPL --period 3mo --config stocksense.yaml
  stocksense analyze AAPL --save --email

API keys and endpoints come from the YAML config; a missing or failing
source degrades its dimension instead of failing the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.symbol, "symbol", "", "Ticker symbol to analyze")
	f.StringVar(&analyzeFlags.period, "period", "", "Fetch window: 1d, 5d, 1mo, 3mo, 6mo, 1y, 5y (default from config)")
	f.StringVar(&analyzeFlags.configPath, "config", "", "Path to YAML config")
	f.BoolVar(&analyzeFlags.save, "save", false, "Write the report to a file")
	f.StringVar(&analyzeFlags.saveDir, "save-dir", ".", "Directory for saved reports")
	f.BoolVar(&analyzeFlags.email, "email", false, "Email the report through the configured SMTP alerter")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := analyzeFlags.symbol
	if symbol == "" && len(args) > 0 {
		symbol = args[0]
	}
	if symbol == "" {
		return fmt.Errorf("a ticker symbol is required\n\nUsage: stocksense analyze <symbol>")
	}

	fileCfg, err := loadConfig(analyzeFlags.configPath)
	if err != nil {
		return err
	}
	if analyzeFlags.period != "" {
		fileCfg.Period = analyzeFlags.period
	}

	runCfg, err := fileCfg.runConfig()
	if err != nil {
		return err
	}

	subject, err := core.NewSubject(symbol, time.Now().UTC())
	if err != nil {
		return err
	}

	connectors, closeConnectors, err := buildConnectors(fileCfg)
	if err != nil {
		return err
	}
	defer closeConnectors()

	manager, closeStore, err := buildMemory(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	eng := engine.NewEngine(connectors, agent.DefaultRegistry(), engineOptions(fileCfg, manager)...)

	result, err := eng.Run(cmd.Context(), subject, runCfg)
	if err != nil {
		return err
	}

	fmt.Println(report.Render(result))

	if analyzeFlags.save {
		path, err := report.Save(analyzeFlags.saveDir, result)
		if err != nil {
			return err
		}
		fmt.Printf("Report saved to %s\n", path)
	}

	if analyzeFlags.email {
		alerter := report.NewAlerter(fileCfg.SMTP, fileCfg.AlertThreshold)
		sent, err := alerter.Deliver(result)
		if err != nil {
			return err
		}
		if sent {
			fmt.Println("Report emailed.")
		}
	}

	return nil
}

// engineOptions assembles the run options the config selects.
func engineOptions(cfg fileConfig, manager *memory.Manager) []engine.Option {
	opts := []engine.Option{
		engine.WithPeriod(cfg.Period),
		engine.WithMemory(manager),
	}
	if cfg.Synthesizer.Kind == "claude" {
		client := anthropic.NewClient()
		var claudeOpts []agent.ClaudeOption
		if cfg.Synthesizer.Model != "" {
			claudeOpts = append(claudeOpts, agent.WithModel(cfg.Synthesizer.Model))
		}
		opts = append(opts, engine.WithSynthesizer(agent.NewClaudeSynthesizer(&client, claudeOpts...)))
	}
	return opts
}

// buildConnectors wires every configured source behind the caching wrapper.
func buildConnectors(cfg fileConfig) ([]connector.Connector, func(), error) {
	ttl, err := parseDuration(cfg.CacheTTL, 5*time.Minute)
	if err != nil {
		return nil, nil, fmt.Errorf("cache_ttl: %w", err)
	}

	userAgent := cfg.Sources.EdgarUserAgent
	if userAgent == "" {
		userAgent = "stocksense-go admin@stocksense.dev"
	}

	raw := []connector.Connector{
		connector.NewNews(connector.NewsConfig{APIKey: cfg.Sources.NewsAPIKey, BaseURL: cfg.Sources.NewsBaseURL}),
		connector.NewFilings(connector.FilingsConfig{UserAgent: userAgent}),
		connector.NewSentiment(connector.SentimentConfig{BaseURL: cfg.Sources.StreamBaseURL}),
		connector.NewPrices(connector.PricesConfig{BaseURL: cfg.Sources.ChartBaseURL}),
		connector.NewFundamentals(connector.FundamentalsConfig{BaseURL: cfg.Sources.ChartBaseURL}),
	}
	if cfg.Sources.QuoteWSURL != "" {
		raw = append(raw, connector.NewLiveQuotes(connector.LiveQuotesConfig{URL: cfg.Sources.QuoteWSURL}))
	}

	var wrapped []connector.Connector
	var caches []*connector.Cached
	for _, c := range raw {
		cached, err := connector.NewCached(c, ttl)
		if err != nil {
			return nil, nil, err
		}
		wrapped = append(wrapped, cached)
		caches = append(caches, cached)
	}
	closeAll := func() {
		for _, c := range caches {
			c.Close()
		}
	}
	return wrapped, closeAll, nil
}

// buildMemory wires the configured store and embedder into a manager.
func buildMemory(cfg fileConfig) (*memory.Manager, func(), error) {
	var store memory.Store
	var err error
	switch cfg.Memory.Backend {
	case "", "chromem":
		store, err = chromem.New()
	case "sqlite":
		path := cfg.Memory.Path
		if path == "" {
			path = "stocksense_memory.db"
		}
		store, err = sqlite.Open(path)
	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Memory.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open memory store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var opts []memory.ManagerOption
	if cfg.Memory.MaxAge != "" {
		maxAge, err := time.ParseDuration(cfg.Memory.MaxAge)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("memory.max_age: %w", err)
		}
		opts = append(opts, memory.WithMaxAge(maxAge))
	}

	closeStore := func() { store.Close() }
	return memory.NewManager(store, embedder, opts...), closeStore, nil
}
