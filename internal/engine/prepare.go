package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/events"
	"github.com/wonny/riptide/internal/marketstate"
)

// prepared is the per-cycle fan-in: everything the scanner and
// allocator need, assembled from the frozen view.
type prepared struct {
	profiles  map[string]*contracts.ThresholdProfile
	events    map[string][]*contracts.TradingEvent
	allEvents []*contracts.TradingEvent
	prices    map[string]float64
}

// prepare fans out over the frozen universe: per symbol it computes the
// threshold profile, resolves flow through the provider chain, and runs
// the detector battery. Symbol order of iteration does not matter here;
// results merge into maps and the scanner re-sorts.
func (e *Engine) prepare(ctx context.Context, cycleID string, now time.Time, stage contracts.SentimentStage, view *marketstate.UniverseView) *prepared {
	symbols := make([]string, 0, len(view.Symbols))
	for sym := range view.Symbols {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	p := &prepared{
		profiles: make(map[string]*contracts.ThresholdProfile, len(symbols)),
		events:   make(map[string][]*contracts.TradingEvent, len(symbols)),
		prices:   make(map[string]float64, len(symbols)),
	}

	workers := e.cfg.Meta.ScanWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			sv := view.Symbols[sym]
			profile, evts := e.prepareSymbol(ctx, cycleID, now, stage, sym, sv, view)

			mu.Lock()
			defer mu.Unlock()
			p.profiles[sym] = profile
			if sv.Snapshot != nil {
				p.prices[sym] = sv.Snapshot.Price
			}
			if len(evts) > 0 {
				p.events[sym] = evts
				p.allEvents = append(p.allEvents, evts...)
			}
		}(sym)
	}
	wg.Wait()

	return p
}

func (e *Engine) prepareSymbol(ctx context.Context, cycleID string, now time.Time, stage contracts.SentimentStage, sym string, sv *marketstate.SymbolView, view *marketstate.UniverseView) (*contracts.ThresholdProfile, []*contracts.TradingEvent) {
	marketCap, err := e.caps.MarketCap(ctx, sym, now)
	if err != nil {
		e.log.WithError(err).WithField("symbol", sym).Warn("Market cap lookup failed")
		marketCap = 0
	}
	profile := e.thresholds.Compute(sym, now, marketCap, stage)

	flow, err := e.chain.GetFlow(ctx, sym, now)
	switch {
	case err == nil:
		// Flow resolved this cycle flows into both the frozen view the
		// scanner reads and the live book for the next cycle.
		sv.Flow = flow
		e.book.SetFlow(sym, flow)
	case errors.Is(err, contracts.ErrDataUnavailable):
		sv.Flow = nil
	default:
		e.log.WithError(err).WithField("symbol", sym).Warn("Flow resolution failed")
		sv.Flow = nil
	}

	// Detectors compare the current tick against the window that
	// preceded it; the tick itself stays out of the platform.
	trailing := sv.Prices
	if len(trailing) > 0 {
		trailing = trailing[:len(trailing)-1]
	}

	rc := &events.RollingContext{
		Profile:       profile,
		Prices:        trailing,
		Volumes:       sv.Volumes,
		Flow:          sv.Flow,
		PeerStrengths: e.peerStrengths(ctx, sym, view),
		AuctionPrices: sv.AuctionPrices,
		TraceID:       cycleID,
	}
	return profile, e.router.Process(sv.Snapshot, rc)
}

// peerStrengths resolves sector peers and reads their price strength
// from the same frozen view, so leader comparisons see one instant. A
// symbol with no sector, or whose peers are all outside the view,
// yields an empty slice and the leader detector stays silent.
func (e *Engine) peerStrengths(ctx context.Context, sym string, view *marketstate.UniverseView) []float64 {
	peers, err := e.peers.Peers(ctx, sym)
	if err != nil {
		e.log.WithError(err).WithField("symbol", sym).Debug("Peer lookup failed")
		return nil
	}
	strengths := make([]float64, 0, len(peers))
	for _, peer := range peers {
		pv, ok := view.Symbols[peer]
		if !ok || pv.Snapshot == nil {
			continue
		}
		strengths = append(strengths, pv.Snapshot.PriceStrength())
	}
	return strengths
}
