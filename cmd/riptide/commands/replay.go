package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print an archived cycle's candidates and decisions",
	Long: `Loads one persisted cycle from the archive and prints exactly what
the allocator saw and decided. With no --cycle, lists the trade date's
cycles instead.`,
	RunE: runReplay,
}

var (
	replayDate  string
	replayCycle string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayDate, "date", "", "trade date (YYYY-MM-DD, default today)")
	replayCmd.Flags().StringVar(&replayCycle, "cycle", "", "cycle id")
}

func runReplay(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	date := time.Now()
	if replayDate != "" {
		date, err = time.Parse("2006-01-02", replayDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", replayDate)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if replayCycle == "" {
		cycles, err := app.Store.ListCycles(ctx, date)
		if err != nil {
			return err
		}
		if len(cycles) == 0 {
			fmt.Printf("no cycles on %s\n", date.Format("2006-01-02"))
			return nil
		}
		for _, c := range cycles {
			fmt.Printf("%s  %-9s stage=%-11s universe=%-4d candidates=%-3d decisions=%-3d %s\n",
				c.StartedAt.Format("15:04:05"), c.Status, c.Stage,
				c.UniverseSize, c.CandidateCount, c.DecisionCount, c.CycleID)
		}
		return nil
	}

	res, err := app.Store.LoadScanResult(ctx, date, replayCycle)
	if err != nil {
		return err
	}
	fmt.Printf("cycle %s  universe=%d  liquidity=%d  pattern=%d  capital=%d\n",
		res.CycleID, res.UniverseSize, res.AfterLiquidity, res.AfterPattern, res.AfterCapital)
	for _, c := range res.Candidates {
		fmt.Printf("  #%d %-10s score=%.3f flow_pct=%.2f risk=%.2f %v\n",
			c.Rank, c.Symbol, c.Score, c.FlowPercentile, c.RiskPenalty, c.Reasons)
	}
	for sym, reason := range res.Dropped {
		fmt.Printf("  dropped %-10s %s\n", sym, reason)
	}

	decisions, err := app.Store.LoadDecisions(ctx, date, replayCycle)
	if err != nil {
		fmt.Println("  no decisions archived")
		return nil
	}
	for _, d := range decisions {
		fmt.Printf("  %-6s %-10s weight=%.3f %s\n", d.Action, d.Symbol, d.TargetWeight, d.Rationale)
	}
	return nil
}
