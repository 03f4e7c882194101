// stocksense runs multi-dimensional stock analysis from the command line.
//
// Usage:
//
//	stocksense analyze --symbol AAPL --period 1mo [--config stocksense.yaml] [--save] [--email]
//	stocksense compare AAPL MSFT [--period 3mo]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "stocksense",
	Short: "Multi-agent stock analysis with persistent memory",
	Long: "Stocksense fans a ticker out to market data connectors, runs one\n" +
		"analysis agent per dimension, and synthesizes an investment memo.\n" +
		"Prior analyses are recalled from a vector memory store.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
