package capitalflow

import (
	"context"
	"sync"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

// Chain orders flow providers from richest to coarsest and walks them
// until one answers with data inside the freshness bound. The bound is
// time-of-day dependent and supplied by the threshold engine, so the
// chain never hardcodes a staleness limit.
//
// Degradation moves one rung at a time: a richer tier that fails, trips
// its breaker, or returns stale data is skipped with a logged reason
// before the next tier is tried. DELAYED_AGGREGATE commits even when
// stale, as the last resort; its tier tag tells callers to keep it out
// of intraday decisions.
type Chain struct {
	providers []Provider
	breakers  map[contracts.SourceTier]*cb.CircuitBreaker
	cfg       strategyconfig.Chain
	freshness FreshnessSource
	log       *logger.Logger

	mu   sync.RWMutex
	last map[string]*contracts.CapitalFlowSnapshot
}

// NewChain wires providers in the given order. Order matters: callers
// pass tiers richest-first and the chain never reorders them.
func NewChain(providers []Provider, cfg strategyconfig.Chain, freshness FreshnessSource, log *logger.Logger) *Chain {
	breakers := make(map[contracts.SourceTier]*cb.CircuitBreaker, len(providers))
	for _, p := range providers {
		tier := p.Tier()
		st := cb.Settings{Name: "flow:" + string(tier)}
		st.Timeout = cfg.BreakerOpenTimeout()
		maxFailures := uint32(cfg.BreakerMaxFailures)
		st.ReadyToTrip = func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		}
		breakers[tier] = cb.NewCircuitBreaker(st)
	}
	return &Chain{
		providers: providers,
		breakers:  breakers,
		cfg:       cfg,
		freshness: freshness,
		log:       log,
		last:      make(map[string]*contracts.CapitalFlowSnapshot),
	}
}

// GetFlow walks the tier chain for symbol at the given cycle timestamp.
// It returns the first fresh snapshot, tagged with the tier that
// actually answered. When every tier fails it returns
// contracts.ErrDataUnavailable; callers exclude the symbol from the
// scan rather than treating flow as zero.
func (c *Chain) GetFlow(ctx context.Context, symbol string, ts time.Time) (*contracts.CapitalFlowSnapshot, error) {
	bound := c.freshness.FreshnessBoundAt(ts)
	lastTier := len(c.providers) - 1

	for i, p := range c.providers {
		tier := p.Tier()
		breaker := c.breakers[tier]

		result, err := breaker.Execute(func() (interface{}, error) {
			tctx, cancel := context.WithTimeout(ctx, c.cfg.TierTimeout())
			defer cancel()
			return p.Fetch(tctx, symbol, ts)
		})
		if err != nil {
			c.log.WithFields(map[string]interface{}{
				"symbol": symbol,
				"tier":   string(tier),
				"reason": err.Error(),
			}).Debug("flow tier skipped")
			continue
		}

		snap := result.(*contracts.CapitalFlowSnapshot)
		if snap == nil {
			c.log.WithFields(map[string]interface{}{
				"symbol": symbol,
				"tier":   string(tier),
				"reason": "empty snapshot",
			}).Debug("flow tier skipped")
			continue
		}
		snap.Tier = tier

		if snap.Age(ts) > bound && i != lastTier {
			c.log.WithFields(map[string]interface{}{
				"symbol": symbol,
				"tier":   string(tier),
				"reason": "stale",
				"age":    snap.Age(ts).String(),
				"bound":  bound.String(),
			}).Debug("flow tier skipped")
			continue
		}

		if i > 0 {
			c.log.WithFields(map[string]interface{}{
				"symbol":  symbol,
				"tier":    string(tier),
				"skipped": i,
			}).Info("flow degraded")
		}

		c.mu.Lock()
		c.last[symbol] = snap
		c.mu.Unlock()
		return snap, nil
	}

	c.log.WithField("symbol", symbol).Warn("flow unavailable on all tiers")
	return nil, contracts.ErrDataUnavailable
}

// IsFresh reports whether the last committed snapshot for symbol is
// still inside the freshness bound. Unknown symbols are not fresh.
func (c *Chain) IsFresh(symbol string, now time.Time) bool {
	c.mu.RLock()
	snap, ok := c.last[symbol]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return snap.Age(now) <= c.freshness.FreshnessBoundAt(now)
}

// Last returns the most recently committed snapshot for symbol, if any.
func (c *Chain) Last(symbol string) (*contracts.CapitalFlowSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.last[symbol]
	return snap, ok
}
