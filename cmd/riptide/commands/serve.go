package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/riptide/internal/api"
	"github.com/wonny/riptide/internal/api/handlers"
	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/feed"
	"github.com/wonny/riptide/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full engine: feeds, scheduler, and API",
	Long: `Starts the ingestion feeds, the scan/recalibration scheduler, and
the read-side HTTP API, then runs until interrupted.

Endpoints:
  GET  /healthz
  GET  /api/v1/cycles?date=YYYY-MM-DD
  GET  /api/v1/cycles/{date}/{id}/candidates
  GET  /api/v1/cycles/{date}/{id}/decisions
  GET  /api/v1/cycles/{date}/{id}/events
  GET  /api/v1/status
  POST /api/v1/stage`,
	RunE: runServe,
}

var (
	servePort  string
	serveStage string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (overrides PORT)")
	serveCmd.Flags().StringVar(&serveStage, "stage", "FREEZE", "initial sentiment stage")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if servePort != "" {
		app.Cfg.Port = servePort
	}
	if !app.Engine.SetSentimentStage(contracts.SentimentStage(serveStage)) {
		return fmt.Errorf("unknown sentiment stage %q", serveStage)
	}

	log := app.Log
	log.WithFields(map[string]interface{}{
		"symbols":     len(app.Symbols),
		"config_hash": app.Hash,
		"stage":       serveStage,
	}).Info("Riptide starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ingestion: websocket when the vendor streams, REST sweep always.
	if app.Cfg.Quote.StreamURL != "" {
		stream := feed.NewStream(app.Cfg.Quote.StreamURL, app.Book, log)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("Quote stream terminated")
			}
		}()
	}
	poller := feed.NewPoller(app.QuoteV, app.Book, app.Symbols, 5, 30*time.Second, log)
	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Quote poller terminated")
		}
	}()

	sched := scheduler.New(app.Clock.Location(), log)
	jobs := []scheduler.Job{
		scheduler.NewScanJob(app.Engine, app.Clock, app.Strategy.Meta.ScanCadenceSec, log),
		scheduler.NewRecalibrateJob(app.Engine, scheduler.NewFileOutcomes(app.Cfg.OutcomesPath), log),
		scheduler.NewFlowHistoryJob(app.Scraper, app.Baselines, app.Symbols, log),
		scheduler.NewRefdataJob(app.QuoteV, app.MarketCaps, app.Sectors, app.Clock, app.Symbols, log),
	}
	for _, job := range jobs {
		if err := sched.AddJob(job); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	cycleHandler := handlers.NewCycleHandler(app.Store, log)
	statusHandler := handlers.NewStatusHandler(app.Engine, sched, app.Clock, log)
	server := api.New(app.Cfg, log, api.NewRouter(cycleHandler, statusHandler, log))

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
