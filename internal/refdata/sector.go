package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/riptide/pkg/database"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// SectorRepo maps symbols to sector ids and back. The leader detector
// needs a symbol's peers; a symbol with no sector simply has none.
type SectorRepo struct {
	db    *database.DB
	cache *redis.Cache
	log   *logger.Logger
}

// NewSectorRepo creates the repo with its injected cache.
func NewSectorRepo(db *database.DB, cache *redis.Cache, log *logger.Logger) *SectorRepo {
	return &SectorRepo{db: db, cache: cache, log: log}
}

// Sector returns the symbol's sector id, or "" when unassigned.
func (r *SectorRepo) Sector(ctx context.Context, symbol string) (string, error) {
	key := redis.SectorKey(symbol)

	var cached string
	if hit, err := r.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	var sector string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT sector_id FROM ref_sector WHERE symbol = $1`, symbol,
	).Scan(&sector)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sector %s: %w", symbol, err)
	}

	if err := r.cache.Set(ctx, key, sector, redis.TTLDaily); err != nil {
		r.log.WithError(err).Debug("Sector cache write failed")
	}
	return sector, nil
}

// Peers returns the other symbols sharing the symbol's sector. A
// sectorless symbol gets an empty peer set.
func (r *SectorRepo) Peers(ctx context.Context, symbol string) ([]string, error) {
	sector, err := r.Sector(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if sector == "" {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT symbol FROM ref_sector WHERE sector_id = $1 AND symbol <> $2`,
		sector, symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("peers %s: %w", symbol, err)
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}

// Assign writes one symbol's sector, used by the daily refdata job.
func (r *SectorRepo) Assign(ctx context.Context, symbol, sectorID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO ref_sector (symbol, sector_id)
		 VALUES ($1, $2)
		 ON CONFLICT (symbol) DO UPDATE SET sector_id = EXCLUDED.sector_id`,
		symbol, sectorID,
	)
	if err != nil {
		return fmt.Errorf("assign sector %s: %w", symbol, err)
	}
	return r.cache.Set(ctx, redis.SectorKey(symbol), sectorID, redis.TTLDaily)
}
