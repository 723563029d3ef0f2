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
	Use:   "fundquant",
	Short: "FundQuant - fund portfolio tracking and valuation",
	Long: `FundQuant tracks a fund portfolio and produces near-real-time
valuation estimates from multiple unreliable market-data providers,
with a calibrated attribution model for funds without a live estimate.`,
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
