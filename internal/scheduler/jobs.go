package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wonny/riptide/internal/capitalflow"
	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/threshold"
	"github.com/wonny/riptide/pkg/logger"
)

// CycleRunner is the engine surface the scan tick needs.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*contracts.CycleRecord, error)
}

// Recalibrator is the engine surface the nightly nudge needs.
type Recalibrator interface {
	Recalibrate(ctx context.Context, hitRate, fpRate float64) (threshold.CalibrationRecord, error)
}

// ScanJob drives the engine at the configured cadence. Ticks outside
// trading hours are no-ops; ticks that abort on budget are already
// recorded by the engine, so the next tick is the retry.
type ScanJob struct {
	engine  CycleRunner
	clock   *market.Clock
	cadence int
	log     *logger.Logger
}

func NewScanJob(eng CycleRunner, clock *market.Clock, cadenceSec int, log *logger.Logger) *ScanJob {
	if cadenceSec <= 0 {
		cadenceSec = 60
	}
	return &ScanJob{engine: eng, clock: clock, cadence: cadenceSec, log: log}
}

func (j *ScanJob) Name() string { return "session_scan" }

func (j *ScanJob) Schedule() string {
	return fmt.Sprintf("*/%d * * * * *", j.cadence)
}

func (j *ScanJob) Run(ctx context.Context) error {
	now := time.Now()
	if j.clock.SegmentAt(now) == contracts.SegmentClosed {
		return nil
	}
	_, err := j.engine.RunCycle(ctx)
	if errors.Is(err, contracts.ErrCycleAborted) {
		return nil
	}
	return err
}

// OutcomeStats is the execution layer's realized performance readout
// the nightly recalibration consumes.
type OutcomeStats struct {
	AsOf              time.Time `json:"as_of"`
	HitRate           float64   `json:"hit_rate"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	Samples           int       `json:"samples"`
}

// OutcomeSource supplies realized outcome statistics.
type OutcomeSource interface {
	Outcomes(ctx context.Context) (OutcomeStats, error)
}

// FileOutcomes reads outcome statistics from the JSON file the
// execution layer maintains.
type FileOutcomes struct {
	path string
}

func NewFileOutcomes(path string) *FileOutcomes {
	return &FileOutcomes{path: path}
}

func (f *FileOutcomes) Outcomes(_ context.Context) (OutcomeStats, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return OutcomeStats{}, fmt.Errorf("read outcomes: %w", err)
	}
	var stats OutcomeStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return OutcomeStats{}, fmt.Errorf("decode outcomes: %w", err)
	}
	return stats, nil
}

// RecalibrateJob applies the nightly threshold nudge from realized
// outcomes. It never runs mid-session by construction of its schedule.
type RecalibrateJob struct {
	engine   Recalibrator
	outcomes OutcomeSource
	log      *logger.Logger

	// MinSamples guards against nudging on a statistically empty day.
	MinSamples int
}

func NewRecalibrateJob(eng Recalibrator, outcomes OutcomeSource, log *logger.Logger) *RecalibrateJob {
	return &RecalibrateJob{engine: eng, outcomes: outcomes, log: log, MinSamples: 10}
}

func (j *RecalibrateJob) Name() string { return "nightly_recalibrate" }

// 17:00 exchange time, weekdays, well after the close.
func (j *RecalibrateJob) Schedule() string { return "0 0 17 * * MON-FRI" }

func (j *RecalibrateJob) Run(ctx context.Context) error {
	stats, err := j.outcomes.Outcomes(ctx)
	if err != nil {
		return err
	}
	if stats.Samples < j.MinSamples {
		j.log.WithField("samples", stats.Samples).Info("Too few outcomes, skipping recalibration")
		return nil
	}
	_, err = j.engine.Recalibrate(ctx, stats.HitRate, stats.FalsePositiveRate)
	return err
}

// ProfileSource supplies a symbol's market cap and sector code.
type ProfileSource interface {
	Profile(ctx context.Context, symbol string) (capYuan float64, sector string, err error)
}

// CapWriter persists one day's market-cap figure for a symbol.
type CapWriter interface {
	Upsert(ctx context.Context, symbol string, date time.Time, capYuan float64) error
}

// SectorWriter records a symbol's sector membership.
type SectorWriter interface {
	Assign(ctx context.Context, symbol, sectorID string) error
}

// RefdataJob refreshes each watchlist symbol's market cap and sector
// before the auction. Capitalization drives the day's threshold
// profiles, so stale caps here mean wrong funnels all session.
type RefdataJob struct {
	source  ProfileSource
	caps    CapWriter
	sectors SectorWriter
	clock   *market.Clock
	symbols []string
	log     *logger.Logger
}

func NewRefdataJob(source ProfileSource, caps CapWriter, sectors SectorWriter, clock *market.Clock, symbols []string, log *logger.Logger) *RefdataJob {
	return &RefdataJob{source: source, caps: caps, sectors: sectors, clock: clock, symbols: symbols, log: log}
}

func (j *RefdataJob) Name() string { return "refdata_refresh" }

// 08:45 exchange time, weekdays, before the call auction opens.
func (j *RefdataJob) Schedule() string { return "0 45 8 * * MON-FRI" }

func (j *RefdataJob) Run(ctx context.Context) error {
	today := time.Now().In(j.clock.Location())
	var failed int
	for _, sym := range j.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		capYuan, sector, err := j.source.Profile(ctx, sym)
		if err != nil {
			failed++
			j.log.WithError(err).WithField("symbol", sym).Warn("Profile fetch failed")
			continue
		}
		if err := j.caps.Upsert(ctx, sym, today, capYuan); err != nil {
			failed++
			j.log.WithError(err).WithField("symbol", sym).Warn("Market cap write failed")
			continue
		}
		if sector != "" {
			if err := j.sectors.Assign(ctx, sym, sector); err != nil {
				j.log.WithError(err).WithField("symbol", sym).Warn("Sector write failed")
			}
		}
	}
	if failed > 0 && failed == len(j.symbols) {
		return fmt.Errorf("refdata refresh: all %d symbols failed", failed)
	}
	j.log.WithFields(map[string]interface{}{
		"symbols": len(j.symbols),
		"failed":  failed,
	}).Info("Refdata refresh complete")
	return nil
}

// BaselineRecorder appends one session's flow to the history that backs
// the inference baseline.
type BaselineRecorder interface {
	Record(ctx context.Context, flow *contracts.CapitalFlowSnapshot) error
}

// FlowHistoryJob scrapes each watchlist symbol's delayed session
// aggregate after the close and rolls it into flow history. Tomorrow's
// inferred-tier baselines come from these rows.
type FlowHistoryJob struct {
	source   capitalflow.AggregateSource
	recorder BaselineRecorder
	symbols  []string
	log      *logger.Logger
}

func NewFlowHistoryJob(source capitalflow.AggregateSource, recorder BaselineRecorder, symbols []string, log *logger.Logger) *FlowHistoryJob {
	return &FlowHistoryJob{source: source, recorder: recorder, symbols: symbols, log: log}
}

func (j *FlowHistoryJob) Name() string { return "flow_history_rollup" }

// 15:30 exchange time, weekdays, once the vendor page settles.
func (j *FlowHistoryJob) Schedule() string { return "0 30 15 * * MON-FRI" }

func (j *FlowHistoryJob) Run(ctx context.Context) error {
	var failed int
	for _, sym := range j.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		flow, err := j.source.SessionAggregate(ctx, sym)
		if err != nil {
			failed++
			j.log.WithError(err).WithField("symbol", sym).Warn("Session aggregate fetch failed")
			continue
		}
		if err := j.recorder.Record(ctx, flow); err != nil {
			failed++
			j.log.WithError(err).WithField("symbol", sym).Warn("Flow history write failed")
		}
	}
	if failed > 0 && failed == len(j.symbols) {
		return fmt.Errorf("flow history rollup: all %d symbols failed", failed)
	}
	j.log.WithFields(map[string]interface{}{
		"symbols": len(j.symbols),
		"failed":  failed,
	}).Info("Flow history rollup complete")
	return nil
}
