package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stocksense/stocksense-go/agent"
	"github.com/stocksense/stocksense-go/core"
	"github.com/stocksense/stocksense-go/engine"
	"github.com/stocksense/stocksense-go/report"
)

var compareFlags struct {
	period     string
	configPath string
}

var compareCmd = &cobra.Command{
	Use:   "compare <symbol> <symbol>",
	Short: "Analyze two tickers side by side",
	Long: `Compare runs the full analysis for two tickers concurrently and prints
their price and valuation next to each other.

Usage:
  stocksense compare AAPL MSFT
  stocksense compare AAPL MSFT --period 3mo --config stocksense.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.period, "period", "", "Fetch window: 1d, 5d, 1mo, 3mo, 6mo, 1y, 5y (default from config)")
	f.StringVar(&compareFlags.configPath, "config", "", "Path to YAML config")
}

func runCompare(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig(compareFlags.configPath)
	if err != nil {
		return err
	}
	if compareFlags.period != "" {
		fileCfg.Period = compareFlags.period
	}

	runCfg, err := fileCfg.runConfig()
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

	// Runs are independent and share only the memory store, so both
	// tickers analyze concurrently.
	asOf := time.Now().UTC()
	results := make([]*core.RunResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, sym := range args {
		subject, err := core.NewSubject(sym, asOf)
		if err != nil {
			return err
		}
		g.Go(func() error {
			result, err := eng.Run(ctx, subject, runCfg)
			if err != nil {
				return fmt.Errorf("%s: %w", subject.Symbol, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println(report.RenderComparison(results[0], results[1]))
	return nil
}
