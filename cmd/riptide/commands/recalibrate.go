package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate",
	Short: "Apply a manual threshold recalibration",
	Long: `Nudges the global threshold multiplier from realized outcome rates
and records the adjustment. Meant to run after the close; schedules
tighten on excess false positives and loosen on missed opportunities.`,
	RunE: runRecalibrate,
}

var (
	recalHitRate float64
	recalFPRate  float64
)

func init() {
	rootCmd.AddCommand(recalibrateCmd)
	recalibrateCmd.Flags().Float64Var(&recalHitRate, "hit-rate", 0, "realized hit rate [0,1]")
	recalibrateCmd.Flags().Float64Var(&recalFPRate, "fp-rate", 0, "realized false-positive rate [0,1]")
	_ = recalibrateCmd.MarkFlagRequired("hit-rate")
	_ = recalibrateCmd.MarkFlagRequired("fp-rate")
}

func runRecalibrate(cmd *cobra.Command, args []string) error {
	if recalHitRate < 0 || recalHitRate > 1 || recalFPRate < 0 || recalFPRate > 1 {
		return fmt.Errorf("rates must be within [0,1]")
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rec, err := app.Engine.Recalibrate(ctx, recalHitRate, recalFPRate)
	if err != nil {
		return err
	}

	fmt.Printf("%s: multiplier %.3f -> %.3f\n", rec.Direction, rec.OldMultiplier, rec.NewMultiplier)
	return nil
}
