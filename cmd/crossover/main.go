package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "crossover",
	Short: "crossover - offline EMA crossover backtester",
	Long: `crossover replays bid/ask bars through a long-only EMA crossover strategy
and reports the trade table, total profit and maximum drawdown.
Bars are read from parquet, CSV or ClickHouse.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
