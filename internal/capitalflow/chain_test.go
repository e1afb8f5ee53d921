package capitalflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

type fixedFreshness struct{ bound time.Duration }

func (f fixedFreshness) FreshnessBoundAt(time.Time) time.Duration { return f.bound }

type stubProvider struct {
	tier  contracts.SourceTier
	snap  *contracts.CapitalFlowSnapshot
	err   error
	calls int
	delay time.Duration
}

func (s *stubProvider) Tier() contracts.SourceTier { return s.tier }

func (s *stubProvider) Fetch(ctx context.Context, symbol string, ts time.Time) (*contracts.CapitalFlowSnapshot, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func snapAt(symbol string, ts time.Time, inflow float64) *contracts.CapitalFlowSnapshot {
	return &contracts.CapitalFlowSnapshot{
		Symbol:        symbol,
		Timestamp:     ts,
		MainNetInflow: inflow,
		MainBuyAmount: inflow,
	}
}

func testChainConfig() strategyconfig.Chain {
	return strategyconfig.Chain{
		TierTimeoutMs:      100,
		BreakerMaxFailures: 3,
		BreakerOpenSec:     30,
	}
}

func TestChainCommitsFirstFreshTier(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	detailed := &stubProvider{
		tier: contracts.TierRealtimeDetailed,
		snap: snapAt("600519.SH", now.Add(-10*time.Second), 5_000_000),
	}
	inferred := &stubProvider{
		tier: contracts.TierRealtimeInferred,
		snap: snapAt("600519.SH", now, 1_000_000),
	}

	chain := NewChain([]Provider{detailed, inferred}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierRealtimeDetailed, snap.Tier)
	assert.Equal(t, 0, inferred.calls, "richer tier answered, coarser must not be touched")
}

func TestChainDegradesOneTierAtATime(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	detailed := &stubProvider{
		tier: contracts.TierRealtimeDetailed,
		err:  errors.New("vendor 503"),
	}
	inferred := &stubProvider{
		tier: contracts.TierRealtimeInferred,
		snap: snapAt("600519.SH", now.Add(-5*time.Second), 2_000_000),
	}
	tick := &stubProvider{
		tier: contracts.TierTickInferred,
		snap: snapAt("600519.SH", now, 500_000),
	}

	chain := NewChain([]Provider{detailed, inferred, tick}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierRealtimeInferred, snap.Tier)
	assert.Equal(t, 1, detailed.calls)
	assert.Equal(t, 0, tick.calls)
}

func TestChainSkipsStaleRicherTier(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	detailed := &stubProvider{
		tier: contracts.TierRealtimeDetailed,
		snap: snapAt("600519.SH", now.Add(-10*time.Minute), 5_000_000),
	}
	inferred := &stubProvider{
		tier: contracts.TierRealtimeInferred,
		snap: snapAt("600519.SH", now.Add(-time.Second), 1_000_000),
	}

	chain := NewChain([]Provider{detailed, inferred}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierRealtimeInferred, snap.Tier)
}

func TestChainDelayedTierAcceptedStale(t *testing.T) {
	// The last rung commits even past the bound; the tier tag marks it
	// inadmissible for intraday use.
	now := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	detailed := &stubProvider{tier: contracts.TierRealtimeDetailed, err: errors.New("down")}
	delayed := &stubProvider{
		tier: contracts.TierDelayedAggregate,
		snap: snapAt("600519.SH", now.Add(-20*time.Hour), 8_000_000),
	}

	chain := NewChain([]Provider{detailed, delayed}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierDelayedAggregate, snap.Tier)
	assert.False(t, snap.Tier.AdmissibleIntraday())
}

func TestChainAllTiersFail(t *testing.T) {
	now := time.Now()
	detailed := &stubProvider{tier: contracts.TierRealtimeDetailed, err: errors.New("down")}
	inferred := &stubProvider{tier: contracts.TierRealtimeInferred, err: errors.New("down")}

	chain := NewChain([]Provider{detailed, inferred}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "000001.SZ", now)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestChainTierTimeout(t *testing.T) {
	now := time.Now()
	slow := &stubProvider{
		tier:  contracts.TierRealtimeDetailed,
		snap:  snapAt("600519.SH", now, 5_000_000),
		delay: 500 * time.Millisecond,
	}
	fast := &stubProvider{
		tier: contracts.TierRealtimeInferred,
		snap: snapAt("600519.SH", now, 1_000_000),
	}

	chain := NewChain([]Provider{slow, fast}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	snap, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)
	assert.Equal(t, contracts.TierRealtimeInferred, snap.Tier)
}

func TestChainBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Now()
	flaky := &stubProvider{tier: contracts.TierRealtimeDetailed, err: errors.New("down")}
	backup := &stubProvider{
		tier: contracts.TierRealtimeInferred,
		snap: snapAt("600519.SH", now, 1_000_000),
	}

	chain := NewChain([]Provider{flaky, backup}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	for i := 0; i < 5; i++ {
		_, err := chain.GetFlow(context.Background(), "600519.SH", now)
		require.NoError(t, err)
	}

	// Breaker trips after 3 consecutive failures; the flaky tier stops
	// being called inline while open.
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, 5, backup.calls)
}

func TestChainIsFresh(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	detailed := &stubProvider{
		tier: contracts.TierRealtimeDetailed,
		snap: snapAt("600519.SH", now, 5_000_000),
	}
	chain := NewChain([]Provider{detailed}, testChainConfig(), fixedFreshness{90 * time.Second}, logger.NewNop())

	assert.False(t, chain.IsFresh("600519.SH", now), "nothing committed yet")

	_, err := chain.GetFlow(context.Background(), "600519.SH", now)
	require.NoError(t, err)

	assert.True(t, chain.IsFresh("600519.SH", now.Add(time.Minute)))
	assert.False(t, chain.IsFresh("600519.SH", now.Add(5*time.Minute)))
	assert.False(t, chain.IsFresh("000001.SZ", now))
}
