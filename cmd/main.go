package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trading-ensemble",
	Short: "A CLI for managing the trading ensemble services",
	Long:  `Trading Ensemble runs a multi-model AI decision engine that fans trading questions out to specialized models and aggregates their verdicts.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
