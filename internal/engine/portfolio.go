package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wonny/riptide/internal/contracts"
)

// FilePortfolio reads the portfolio snapshot the execution layer drops
// as a JSON file. The file is rewritten atomically by the writer, so a
// read sees either the previous snapshot or the next, never a torn one.
type FilePortfolio struct {
	path string

	// MaxAge bounds how old a snapshot may be before it is treated as
	// unavailable. Zero disables the check.
	MaxAge time.Duration
}

// NewFilePortfolio creates a file-backed portfolio source.
func NewFilePortfolio(path string) *FilePortfolio {
	return &FilePortfolio{path: path}
}

// Portfolio reads and decodes the snapshot. Any failure maps to
// ErrPortfolioUnavailable so the allocator stays silent rather than
// acting on a guess.
func (f *FilePortfolio) Portfolio(_ context.Context) (*contracts.PortfolioState, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrPortfolioUnavailable, err)
	}
	var state contracts.PortfolioState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", contracts.ErrPortfolioUnavailable, err)
	}
	if f.MaxAge > 0 && time.Since(state.AsOf) > f.MaxAge {
		return nil, fmt.Errorf("%w: snapshot %s old: %w",
			contracts.ErrPortfolioUnavailable, time.Since(state.AsOf).Round(time.Second), contracts.ErrStaleData)
	}
	return &state, nil
}
