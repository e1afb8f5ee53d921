package marketstate

import (
	"github.com/wonny/riptide/internal/contracts"
)

// SymbolView is one symbol's state frozen at snapshot time. Views are
// deep copies: a still-running cycle never observes writes from a feed.
type SymbolView struct {
	Snapshot      *contracts.MarketSnapshot
	Prices        []float64
	Volumes       []int64
	AuctionPrices []float64
	Flow          *contracts.CapitalFlowSnapshot
}

// UniverseView is the immutable whole-market state one scan cycle runs
// against. Version increments on every snapshot; cycles record it so a
// replay can prove which state they saw.
type UniverseView struct {
	Version uint64
	Symbols map[string]*SymbolView
}

// Snapshot freezes the current universe. Symbols that have never
// received a market snapshot are excluded.
func (b *Book) Snapshot() *UniverseView {
	b.mu.Lock()
	b.version++
	version := b.version
	states := make(map[string]*symbolState, len(b.symbols))
	for sym, st := range b.symbols {
		states[sym] = st
	}
	b.mu.Unlock()

	view := &UniverseView{
		Version: version,
		Symbols: make(map[string]*SymbolView, len(states)),
	}
	for sym, st := range states {
		st.mu.Lock()
		if st.last == nil {
			st.mu.Unlock()
			continue
		}
		sv := &SymbolView{
			Snapshot:      cloneSnapshot(st.last),
			Prices:        append([]float64(nil), st.prices...),
			Volumes:       append([]int64(nil), st.volumes...),
			AuctionPrices: append([]float64(nil), st.auctionPrices...),
		}
		if st.flow != nil {
			f := *st.flow
			sv.Flow = &f
		}
		st.mu.Unlock()
		view.Symbols[sym] = sv
	}
	return view
}

func cloneSnapshot(s *contracts.MarketSnapshot) *contracts.MarketSnapshot {
	out := *s
	if s.Bar != nil {
		bar := *s.Bar
		out.Bar = &bar
	}
	out.Bids = append([]contracts.QuoteLevel(nil), s.Bids...)
	out.Asks = append([]contracts.QuoteLevel(nil), s.Asks...)
	return &out
}
