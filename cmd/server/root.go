package main

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tickrx",
	Short: "TickrX market dashboard backend",
	Long: `TickrX ranks live crypto and US stock snapshots, asks a language model
for short rationales and serves the result as JSON.

Examples:
  tickrx serve --config configs/app.yaml
  tickrx rank --snapshot testdata/markets.json
  tickrx subscribers export > subscribers.csv`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "configs/app.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug|info|warn|error)")
}
