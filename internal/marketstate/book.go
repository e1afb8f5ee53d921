package marketstate

import (
	"fmt"
	"sync"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/pkg/logger"
)

// Book holds per-symbol rolling state. Feeds apply updates through it;
// a per-symbol ordering guard rejects anything that would rewind time
// or shrink cumulative volume. Different feeds may write concurrently,
// but updates for one symbol are serialized by the symbol's lock.
type Book struct {
	window int
	clock  *market.Clock
	log    *logger.Logger

	mu      sync.RWMutex
	symbols map[string]*symbolState
	version uint64
}

type symbolState struct {
	mu sync.Mutex

	last    *contracts.MarketSnapshot
	prices  []float64
	volumes []int64 // per-interval, derived from cumulative diffs

	auctionPrices []float64
	flow          *contracts.CapitalFlowSnapshot
}

// NewBook creates a state book with the given rolling-window length.
func NewBook(window int, clock *market.Clock, log *logger.Logger) *Book {
	if window <= 0 {
		window = 1
	}
	return &Book{
		window:  window,
		clock:   clock,
		log:     log,
		symbols: make(map[string]*symbolState),
	}
}

// Apply validates and applies one snapshot. Out-of-order updates (older
// timestamp, or shrinking cumulative volume/amount) are rejected with
// contracts.ErrOutOfOrder and do not touch state.
func (b *Book) Apply(snap *contracts.MarketSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	st := b.state(snap.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.last != nil {
		if !snap.Timestamp.After(st.last.Timestamp) {
			return fmt.Errorf("%w: %s at %s not after %s",
				contracts.ErrOutOfOrder, snap.Symbol, snap.Timestamp, st.last.Timestamp)
		}
		sameDay := b.clock.TradeDate(snap.Timestamp) == b.clock.TradeDate(st.last.Timestamp)
		if sameDay && (snap.Volume < st.last.Volume || snap.Amount < st.last.Amount) {
			return fmt.Errorf("%w: %s cumulative volume/amount decreased",
				contracts.ErrOutOfOrder, snap.Symbol)
		}
		if !sameDay {
			// New trading day resets the intraday windows.
			st.prices = st.prices[:0]
			st.volumes = st.volumes[:0]
			st.auctionPrices = st.auctionPrices[:0]
		}
	}

	intervalVol := snap.Volume
	if st.last != nil && b.clock.TradeDate(snap.Timestamp) == b.clock.TradeDate(st.last.Timestamp) {
		intervalVol = snap.Volume - st.last.Volume
	}

	st.prices = appendCapped(st.prices, snap.Price, b.window)
	st.volumes = appendCappedInt(st.volumes, intervalVol, b.window)

	if b.clock.SegmentAt(snap.Timestamp) == contracts.SegmentAuction {
		st.auctionPrices = append(st.auctionPrices, snap.Price)
	}

	st.last = snap
	return nil
}

// Latest returns a copy of the symbol's most recent snapshot.
func (b *Book) Latest(symbol string) (*contracts.MarketSnapshot, bool) {
	b.mu.RLock()
	st, ok := b.symbols[symbol]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.last == nil {
		return nil, false
	}
	return cloneSnapshot(st.last), true
}

// SetFlow records the latest committed flow snapshot for a symbol.
func (b *Book) SetFlow(symbol string, flow *contracts.CapitalFlowSnapshot) {
	st := b.state(symbol)
	st.mu.Lock()
	st.flow = flow
	st.mu.Unlock()
}

func (b *Book) state(symbol string) *symbolState {
	b.mu.RLock()
	st, ok := b.symbols[symbol]
	b.mu.RUnlock()
	if ok {
		return st
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok = b.symbols[symbol]; ok {
		return st
	}
	st = &symbolState{}
	b.symbols[symbol] = st
	return st
}

func appendCapped(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

func appendCappedInt(s []int64, v int64, max int) []int64 {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
