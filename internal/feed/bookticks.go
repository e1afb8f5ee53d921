package feed

import (
	"context"
	"fmt"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
)

// BookTicks serves the tick-inferred tier from the state book's latest
// applied snapshot. In replay the poller is the only writer, which is
// exactly what "inference from batched ticks" means here.
type BookTicks struct {
	book *marketstate.Book
}

// NewBookTicks adapts the book as a tick source.
func NewBookTicks(book *marketstate.Book) *BookTicks {
	return &BookTicks{book: book}
}

// LatestTick returns the symbol's last applied snapshot.
func (b *BookTicks) LatestTick(_ context.Context, symbol string) (*contracts.MarketSnapshot, error) {
	snap, ok := b.book.Latest(symbol)
	if !ok {
		return nil, fmt.Errorf("tick source %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	return snap, nil
}
