package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riptide",
	Short: "Riptide - A-share capital-flow signal engine",
	Long: `Riptide scans an A-share watchlist for capital-flow driven
opportunities: tiered flow resolution, event detection, a three-funnel
scan, and capital allocation against the live portfolio.

The engine emits decisions; order placement belongs to the execution
layer.

Examples:
  riptide serve
  riptide scan --stage MAIN_RALLY
  riptide replay --date 2026-03-02 --cycle <id>
  riptide recalibrate --hit-rate 0.42 --fp-rate 0.31
  riptide status`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
