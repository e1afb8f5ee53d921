package feed

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/pkg/logger"
)

// Poller sweeps a symbol list through the quote REST endpoint and
// applies the results to the book. It covers symbols the websocket
// does not carry and doubles as the sole ingestion path in replay. A
// local token bucket paces the sweep below the vendor's shared limit.
type Poller struct {
	vendor  *QuoteVendor
	book    *marketstate.Book
	symbols []string
	limiter *rate.Limiter
	every   time.Duration
	log     *logger.Logger
}

// NewPoller creates a sweep poller. rps paces individual requests;
// every is the gap between full sweeps.
func NewPoller(vendor *QuoteVendor, book *marketstate.Book, symbols []string, rps float64, every time.Duration, log *logger.Logger) *Poller {
	if rps <= 0 {
		rps = 5
	}
	return &Poller{
		vendor:  vendor,
		book:    book,
		symbols: symbols,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		every:   every,
		log:     log,
	}
}

// Run sweeps until the context ends.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	for {
		p.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single synchronous sweep, for one-shot commands.
func (p *Poller) SweepOnce(ctx context.Context) {
	p.sweep(ctx)
}

func (p *Poller) sweep(ctx context.Context) {
	for _, sym := range p.symbols {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		snap, err := p.vendor.Quote(ctx, sym)
		if err != nil {
			p.log.WithError(err).WithField("symbol", sym).Debug("Quote poll failed")
			continue
		}
		if err := p.book.Apply(snap); err != nil && !errors.Is(err, contracts.ErrOutOfOrder) {
			p.log.WithError(err).WithField("symbol", sym).Debug("Polled quote rejected")
		}
	}
}
