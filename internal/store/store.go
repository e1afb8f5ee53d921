package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/database"
	"github.com/wonny/riptide/pkg/logger"
)

// Store persists cycle outputs keyed by (trade_date, cycle_id) so a
// replay can reproduce the exact inputs the allocator saw. Candidates,
// decisions, and events are stored as JSONB documents; the engine never
// queries inside them, it only replays whole batches.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// New creates a store over the shared pool.
func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// SaveCycle records the cycle summary row. Called for completed and
// aborted cycles alike; the status column keeps the two apart.
func (s *Store) SaveCycle(ctx context.Context, rec *contracts.CycleRecord) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO cycles
		   (trade_date, cycle_id, started_at, duration_ms, status, stage,
		    config_hash, universe_size, candidate_count, decision_count, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (trade_date, cycle_id) DO NOTHING`,
		rec.TradeDate.Format("2006-01-02"), rec.CycleID, rec.StartedAt,
		rec.Duration.Milliseconds(), string(rec.Status), string(rec.Stage),
		rec.ConfigHash, rec.UniverseSize, rec.CandidateCount, rec.DecisionCount,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("save cycle %s: %w", rec.CycleID, err)
	}
	return nil
}

// SaveScanResult archives one cycle's candidate list.
func (s *Store) SaveScanResult(ctx context.Context, tradeDate time.Time, res *contracts.ScanResult) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal scan result %s: %w", res.CycleID, err)
	}
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO scan_results (trade_date, cycle_id, result)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (trade_date, cycle_id) DO NOTHING`,
		tradeDate.Format("2006-01-02"), res.CycleID, doc,
	)
	if err != nil {
		return fmt.Errorf("save scan result %s: %w", res.CycleID, err)
	}
	return nil
}

// SaveDecisions archives one allocation pass's decisions.
func (s *Store) SaveDecisions(ctx context.Context, tradeDate time.Time, cycleID string, decisions []contracts.AllocationDecision) error {
	doc, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("marshal decisions %s: %w", cycleID, err)
	}
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO decisions (trade_date, cycle_id, decisions)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (trade_date, cycle_id) DO NOTHING`,
		tradeDate.Format("2006-01-02"), cycleID, doc,
	)
	if err != nil {
		return fmt.Errorf("save decisions %s: %w", cycleID, err)
	}
	return nil
}

// SaveEvents archives the cycle's event stream for the audit layer.
func (s *Store) SaveEvents(ctx context.Context, tradeDate time.Time, cycleID string, events []*contracts.TradingEvent) error {
	if len(events) == 0 {
		return nil
	}
	doc, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal events %s: %w", cycleID, err)
	}
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO trading_events (trade_date, cycle_id, events)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (trade_date, cycle_id) DO NOTHING`,
		tradeDate.Format("2006-01-02"), cycleID, doc,
	)
	if err != nil {
		return fmt.Errorf("save events %s: %w", cycleID, err)
	}
	return nil
}

// LoadScanResult reads one archived cycle for replay.
func (s *Store) LoadScanResult(ctx context.Context, tradeDate time.Time, cycleID string) (*contracts.ScanResult, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT result FROM scan_results WHERE trade_date = $1 AND cycle_id = $2`,
		tradeDate.Format("2006-01-02"), cycleID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scan result %s/%s: %w", tradeDate.Format("2006-01-02"), cycleID, contracts.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("load scan result %s: %w", cycleID, err)
	}

	var res contracts.ScanResult
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, fmt.Errorf("unmarshal scan result %s: %w", cycleID, err)
	}
	return &res, nil
}

// LoadDecisions reads one archived allocation pass.
func (s *Store) LoadDecisions(ctx context.Context, tradeDate time.Time, cycleID string) ([]contracts.AllocationDecision, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT decisions FROM decisions WHERE trade_date = $1 AND cycle_id = $2`,
		tradeDate.Format("2006-01-02"), cycleID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decisions %s/%s: %w", tradeDate.Format("2006-01-02"), cycleID, contracts.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("load decisions %s: %w", cycleID, err)
	}

	var out []contracts.AllocationDecision
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("unmarshal decisions %s: %w", cycleID, err)
	}
	return out, nil
}

// LoadEvents reads one archived event stream. A cycle that emitted no
// events has no row; that reads back as an empty slice, not an error.
func (s *Store) LoadEvents(ctx context.Context, tradeDate time.Time, cycleID string) ([]*contracts.TradingEvent, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT events FROM trading_events WHERE trade_date = $1 AND cycle_id = $2`,
		tradeDate.Format("2006-01-02"), cycleID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load events %s: %w", cycleID, err)
	}

	var out []*contracts.TradingEvent
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("unmarshal events %s: %w", cycleID, err)
	}
	return out, nil
}

// ListCycles returns a trade date's cycle summaries, oldest first.
func (s *Store) ListCycles(ctx context.Context, tradeDate time.Time) ([]contracts.CycleRecord, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT cycle_id, started_at, duration_ms, status, stage, config_hash,
		        universe_size, candidate_count, decision_count, error
		 FROM cycles WHERE trade_date = $1 ORDER BY started_at`,
		tradeDate.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []contracts.CycleRecord
	for rows.Next() {
		var rec contracts.CycleRecord
		var durationMs int64
		var status, stage string
		if err := rows.Scan(&rec.CycleID, &rec.StartedAt, &durationMs, &status, &stage,
			&rec.ConfigHash, &rec.UniverseSize, &rec.CandidateCount, &rec.DecisionCount, &rec.Error); err != nil {
			return nil, err
		}
		rec.TradeDate = tradeDate
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Status = contracts.CycleStatus(status)
		rec.Stage = contracts.SentimentStage(stage)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveCalibration appends one recalibration record to the audit trail.
func (s *Store) SaveCalibration(ctx context.Context, appliedAt time.Time, hitRate, fpRate, oldMult, newMult float64, direction string) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO calibrations (applied_at, hit_rate, false_positive_rate, old_multiplier, new_multiplier, direction)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		appliedAt, hitRate, fpRate, oldMult, newMult, direction,
	)
	if err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	return nil
}
