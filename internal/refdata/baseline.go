package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/database"
)

// BaselineRepo serves the trailing average of a symbol's main net
// inflow, the anchor term of the flow-inference formula. No history
// means no inference: the caller gets ErrDataUnavailable, never zero.
type BaselineRepo struct {
	db       *database.DB
	lookback int
}

// NewBaselineRepo creates the repo. lookback is how many prior sessions
// the average spans.
func NewBaselineRepo(db *database.DB, lookback int) *BaselineRepo {
	if lookback <= 0 {
		lookback = 20
	}
	return &BaselineRepo{db: db, lookback: lookback}
}

// FlowBaseline returns the symbol's trailing main-flow average in yuan.
func (r *BaselineRepo) FlowBaseline(ctx context.Context, symbol string) (float64, error) {
	// AVG over zero rows yields NULL, hence the nullable scan target.
	var baseline *float64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT AVG(main_net_inflow) FROM (
		   SELECT main_net_inflow FROM flow_history
		   WHERE symbol = $1
		   ORDER BY trade_date DESC LIMIT $2
		 ) recent`,
		symbol, r.lookback,
	).Scan(&baseline)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("baseline %s: %w", symbol, err)
	}
	if err != nil || baseline == nil {
		return 0, fmt.Errorf("baseline %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	return *baseline, nil
}

// Record appends one session's realized flow for future baselines.
func (r *BaselineRepo) Record(ctx context.Context, flow *contracts.CapitalFlowSnapshot) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO flow_history (symbol, trade_date, main_net_inflow, tier)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (symbol, trade_date)
		 DO UPDATE SET main_net_inflow = EXCLUDED.main_net_inflow, tier = EXCLUDED.tier`,
		flow.Symbol, flow.Timestamp.Format("2006-01-02"), flow.MainNetInflow, string(flow.Tier),
	)
	if err != nil {
		return fmt.Errorf("record flow %s: %w", flow.Symbol, err)
	}
	return nil
}
