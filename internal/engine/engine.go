package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/riptide/internal/allocator"
	"github.com/wonny/riptide/internal/capitalflow"
	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/events"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/internal/scanner"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/internal/threshold"
	"github.com/wonny/riptide/pkg/logger"
)

// CapSource supplies market capitalizations for threshold tiering.
type CapSource interface {
	MarketCap(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// PeerSource supplies sector peers for the leader detector.
type PeerSource interface {
	Peers(ctx context.Context, symbol string) ([]string, error)
}

// PortfolioSource reads a consistent portfolio snapshot from the
// execution layer. An error means the allocator sees nil and stays
// silent this cycle.
type PortfolioSource interface {
	Portfolio(ctx context.Context) (*contracts.PortfolioState, error)
}

// Persister archives cycle outputs. The store implements it; tests
// substitute a recorder.
type Persister interface {
	SaveCycle(ctx context.Context, rec *contracts.CycleRecord) error
	SaveScanResult(ctx context.Context, tradeDate time.Time, res *contracts.ScanResult) error
	SaveDecisions(ctx context.Context, tradeDate time.Time, cycleID string, decisions []contracts.AllocationDecision) error
	SaveEvents(ctx context.Context, tradeDate time.Time, cycleID string, events []*contracts.TradingEvent) error
	SaveCalibration(ctx context.Context, appliedAt time.Time, hitRate, fpRate, oldMult, newMult float64, direction string) error
}

// Engine is the cycle orchestrator: freeze the universe, resolve flow,
// detect events, scan, allocate, persist. One cycle at a time; feeds
// keep writing to the book while a cycle runs against its frozen view.
type Engine struct {
	cfg        *strategyconfig.Config
	configHash string

	clock      *market.Clock
	thresholds *threshold.Engine
	chain      *capitalflow.Chain
	router     *events.Router
	scanner    *scanner.Scanner
	alloc      *allocator.Allocator
	book       *marketstate.Book

	caps      CapSource
	peers     PeerSource
	portfolio PortfolioSource
	persister Persister
	log       *logger.Logger

	// stage is set once per cycle by the operator or scheduler through
	// SetSentimentStage, never read from ambient state.
	mu         sync.RWMutex
	stage      contracts.SentimentStage
	lastScores map[string]float64
	lastResult *contracts.ScanResult
	lastRecord *contracts.CycleRecord
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Config     *strategyconfig.Config
	ConfigHash string
	Clock      *market.Clock
	Thresholds *threshold.Engine
	Chain      *capitalflow.Chain
	Router     *events.Router
	Scanner    *scanner.Scanner
	Book       *marketstate.Book
	Caps       CapSource
	Peers      PeerSource
	Portfolio  PortfolioSource
	Persister  Persister
	Log        *logger.Logger
}

// New wires the orchestrator. The allocator is built here so it shares
// the engine's rescoring path.
func New(d Deps) *Engine {
	e := &Engine{
		cfg:        d.Config,
		configHash: d.ConfigHash,
		clock:      d.Clock,
		thresholds: d.Thresholds,
		chain:      d.Chain,
		router:     d.Router,
		scanner:    d.Scanner,
		book:       d.Book,
		caps:       d.Caps,
		peers:      d.Peers,
		portfolio:  d.Portfolio,
		persister:  d.Persister,
		log:        d.Log,
		stage:      contracts.StageFreeze,
		lastScores: make(map[string]float64),
	}
	e.alloc = allocator.New(d.Config.Allocation, d.Clock, e, d.ConfigHash, d.Log)
	return e
}

// SetSentimentStage updates the stage used by subsequent cycles. An
// invalid stage is refused; the previous stage stays in force.
func (e *Engine) SetSentimentStage(stage contracts.SentimentStage) bool {
	if !contracts.IsValidSentimentStage(stage) {
		e.log.WithField("stage", string(stage)).Warn("Invalid sentiment stage ignored")
		return false
	}
	e.mu.Lock()
	e.stage = stage
	e.mu.Unlock()
	e.log.WithField("stage", string(stage)).Info("Sentiment stage set")
	return true
}

// Stage returns the stage cycles currently run under.
func (e *Engine) Stage() contracts.SentimentStage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stage
}

// CurrentScore implements the allocator's rescoring path from the last
// completed scan: candidates keep their score, and symbols the scan
// evaluated and rejected score zero. A symbol excluded for missing
// inputs was never evaluated, so like an unknown symbol it has no
// score; missing data is handled by exclusion, never by substituting
// a zero the PK rule would sell against.
func (e *Engine) CurrentScore(symbol string) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastResult == nil {
		return 0, false
	}
	for _, c := range e.lastResult.Candidates {
		if c.Symbol == symbol {
			return c.Score, true
		}
	}
	if e.lastResult.DataGaps[symbol] {
		return 0, false
	}
	if _, dropped := e.lastResult.Dropped[symbol]; dropped {
		return 0, true
	}
	return 0, false
}

// LastResult returns the most recent completed scan result.
func (e *Engine) LastResult() *contracts.ScanResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastResult
}

// LastRecord returns the most recent cycle record, completed or aborted.
func (e *Engine) LastRecord() *contracts.CycleRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRecord
}

// RunCycle executes one full scan/allocation cycle under the wall-clock
// budget. An over-budget cycle is aborted: its partial results are
// discarded, the aborted record is persisted, and ErrCycleAborted comes
// back. A completed cycle with zero candidates is a normal outcome.
func (e *Engine) RunCycle(ctx context.Context) (*contracts.CycleRecord, error) {
	started := time.Now()
	cycleID := uuid.NewString()
	stage := e.Stage()
	tradeDate := e.clock.TradeDate(started)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Meta.CycleBudget())
	defer cancel()

	log := e.log.WithFields(map[string]interface{}{
		"cycle_id": cycleID,
		"stage":    string(stage),
	})
	log.Info("Cycle started")

	view := e.book.Snapshot()
	prep := e.prepare(ctx, cycleID, started, stage, view)

	if err := ctx.Err(); err != nil {
		return e.abort(cycleID, tradeDate, started, stage, len(view.Symbols), "budget exceeded during preparation")
	}

	scanRes := e.scanner.Scan(&scanner.Input{
		CycleID:   cycleID,
		Timestamp: started,
		Universe:  view,
		Profiles:  prep.profiles,
		Events:    prep.events,
		Intraday:  e.clock.InSession(started),
	})

	if err := ctx.Err(); err != nil {
		return e.abort(cycleID, tradeDate, started, stage, len(view.Symbols), "budget exceeded during scan")
	}

	e.mu.Lock()
	e.lastResult = scanRes
	e.mu.Unlock()

	// Allocation is one serialized pass over the whole portfolio.
	pf, err := e.portfolio.Portfolio(ctx)
	if err != nil {
		log.WithError(err).Error("Portfolio unavailable, allocator will stay silent")
		pf = nil
	}
	decisions := e.alloc.Allocate(&allocator.Input{
		CycleID:    cycleID,
		Now:        started,
		Candidates: scanRes.Candidates,
		Portfolio:  pf,
		Prices:     prep.prices,
	})

	rec := &contracts.CycleRecord{
		CycleID:        cycleID,
		TradeDate:      tradeDate,
		StartedAt:      started,
		Duration:       time.Since(started),
		Status:         contracts.CycleCompleted,
		Stage:          stage,
		ConfigHash:     e.configHash,
		UniverseSize:   len(view.Symbols),
		CandidateCount: len(scanRes.Candidates),
		DecisionCount:  len(decisions),
	}

	e.persist(rec, scanRes, decisions, prep.allEvents)

	e.mu.Lock()
	e.lastRecord = rec
	e.mu.Unlock()

	log.WithFields(map[string]interface{}{
		"candidates": rec.CandidateCount,
		"decisions":  rec.DecisionCount,
		"duration":   rec.Duration.String(),
	}).Info("Cycle completed")
	return rec, nil
}

// Recalibrate applies one out-of-band threshold nudge and appends it to
// the audit trail. Meant for the nightly job, never mid-session.
func (e *Engine) Recalibrate(ctx context.Context, hitRate, fpRate float64) (threshold.CalibrationRecord, error) {
	rec := e.thresholds.Recalibrate(hitRate, fpRate)
	err := e.persister.SaveCalibration(ctx, rec.AppliedAt, rec.HitRate, rec.FalsePositiveRate, rec.OldMultiplier, rec.NewMultiplier, rec.Direction)
	if err != nil {
		e.log.WithError(err).Error("Failed to persist calibration record")
	}
	return rec, err
}

// BaseMultiplier exposes the current calibration multiplier for status
// reporting.
func (e *Engine) BaseMultiplier() float64 {
	return e.thresholds.BaseMultiplier()
}

// abort discards partial results and persists the aborted record. The
// allocator never sees anything from an aborted cycle.
func (e *Engine) abort(cycleID string, tradeDate time.Time, started time.Time, stage contracts.SentimentStage, universe int, reason string) (*contracts.CycleRecord, error) {
	rec := &contracts.CycleRecord{
		CycleID:      cycleID,
		TradeDate:    tradeDate,
		StartedAt:    started,
		Duration:     time.Since(started),
		Status:       contracts.CycleAborted,
		Stage:        stage,
		ConfigHash:   e.configHash,
		UniverseSize: universe,
		Error:        reason,
	}

	e.log.WithFields(map[string]interface{}{
		"cycle_id": cycleID,
		"reason":   reason,
	}).Error("Cycle aborted")

	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.persister.SaveCycle(pctx, rec); err != nil {
		e.log.WithError(err).Error("Failed to persist aborted cycle")
	}

	e.mu.Lock()
	e.lastRecord = rec
	e.mu.Unlock()

	return rec, contracts.ErrCycleAborted
}

func (e *Engine) persist(rec *contracts.CycleRecord, res *contracts.ScanResult, decisions []contracts.AllocationDecision, evts []*contracts.TradingEvent) {
	// Persistence gets its own deadline: a cycle that finished in budget
	// should not lose its archive to the budget's leftovers.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.persister.SaveCycle(ctx, rec); err != nil {
		e.log.WithError(err).Error("Failed to persist cycle record")
	}
	if err := e.persister.SaveScanResult(ctx, rec.TradeDate, res); err != nil {
		e.log.WithError(err).Error("Failed to persist scan result")
	}
	if err := e.persister.SaveDecisions(ctx, rec.TradeDate, rec.CycleID, decisions); err != nil {
		e.log.WithError(err).Error("Failed to persist decisions")
	}
	if err := e.persister.SaveEvents(ctx, rec.TradeDate, rec.CycleID, evts); err != nil {
		e.log.WithError(err).Error("Failed to persist events")
	}
}
