package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus - Personal finance platform",
	Long: `Nexus is a self-hosted personal finance platform.

Services:
  gateway  - API Gateway (ledger, market, advisor, settings)
  market   - Market data service (quotes, candles, FX)
  settings - Settings service (encrypted API keys, preferences)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}
