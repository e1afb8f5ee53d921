package refdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/riptide/pkg/database"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// MarketCapRepo serves market capitalizations from the reference table,
// with a read-through daily cache. A symbol absent from the table
// returns (0, nil): the threshold engine treats zero as a degraded
// input and falls back to the smallest tier on its own.
type MarketCapRepo struct {
	db    *database.DB
	cache *redis.Cache
	log   *logger.Logger
}

// NewMarketCapRepo creates the repo with its injected cache.
func NewMarketCapRepo(db *database.DB, cache *redis.Cache, log *logger.Logger) *MarketCapRepo {
	return &MarketCapRepo{db: db, cache: cache, log: log}
}

// MarketCap returns the symbol's capitalization in yuan as of date.
func (r *MarketCapRepo) MarketCap(ctx context.Context, symbol string, date time.Time) (float64, error) {
	day := date.Format("2006-01-02")
	key := redis.MarketCapKey(symbol, day)

	var cached float64
	if hit, err := r.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	var capYuan float64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT market_cap_yuan FROM ref_market_cap
		 WHERE symbol = $1 AND as_of_date <= $2
		 ORDER BY as_of_date DESC LIMIT 1`,
		symbol, day,
	).Scan(&capYuan)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("market cap %s: %w", symbol, err)
	}

	if err := r.cache.Set(ctx, key, capYuan, redis.TTLDaily); err != nil {
		r.log.WithError(err).Debug("Market cap cache write failed")
	}
	return capYuan, nil
}

// Upsert refreshes one symbol's capitalization, used by the daily
// refdata job. The cache entry for the day is replaced, not left stale.
func (r *MarketCapRepo) Upsert(ctx context.Context, symbol string, date time.Time, capYuan float64) error {
	day := date.Format("2006-01-02")
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO ref_market_cap (symbol, as_of_date, market_cap_yuan)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (symbol, as_of_date)
		 DO UPDATE SET market_cap_yuan = EXCLUDED.market_cap_yuan`,
		symbol, day, capYuan,
	)
	if err != nil {
		return fmt.Errorf("upsert market cap %s: %w", symbol, err)
	}
	return r.cache.Set(ctx, redis.MarketCapKey(symbol, day), capYuan, redis.TTLDaily)
}
