package capitalflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/strategyconfig"
)

func inferWeights() strategyconfig.Inference {
	return strategyconfig.Inference{
		BaseFlowWeight: 0.30,
		PressureWeight: 0.45,
		StrengthWeight: 0.25,
	}
}

func snapWithBook(bid, ask int64) *contracts.MarketSnapshot {
	return &contracts.MarketSnapshot{
		Symbol:    "600519.SH",
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Price:     102.0,
		PrevClose: 100.0,
		Amount:    10_000_000,
		Bids:      []contracts.QuoteLevel{{Price: 101.9, Size: bid}},
		Asks:      []contracts.QuoteLevel{{Price: 102.1, Size: ask}},
	}
}

func TestInferrerEstimate(t *testing.T) {
	inf := NewInferrer(inferWeights())
	snap := snapWithBook(3000, 1000) // bid_pressure = 0.5

	flow, ok := inf.Estimate(snap, 2_000_000, contracts.TierRealtimeInferred, snap.Timestamp)
	require.True(t, ok)

	// 0.30*2e6 + 0.45*1e7*(0.5-1.0) + 0.25*1e7*0.02
	want := 0.30*2_000_000 + 0.45*10_000_000*(0.5-1.0) + 0.25*10_000_000*0.02
	assert.InDelta(t, want, flow.MainNetInflow, 1e-6)
	assert.Equal(t, contracts.TierRealtimeInferred, flow.Tier)
	assert.Equal(t, "600519.SH", flow.Symbol)
}

func TestInferrerSplitsGrossSides(t *testing.T) {
	inf := NewInferrer(inferWeights())

	strong := snapWithBook(9000, 1000) // heavy bid side
	flow, ok := inf.Estimate(strong, 50_000_000, contracts.TierTickInferred, strong.Timestamp)
	require.True(t, ok)
	if flow.MainNetInflow >= 0 {
		assert.Equal(t, flow.MainNetInflow, flow.MainBuyAmount)
		assert.Zero(t, flow.MainSellAmount)
	} else {
		assert.Equal(t, -flow.MainNetInflow, flow.MainSellAmount)
		assert.Zero(t, flow.MainBuyAmount)
	}
}

func TestInferrerNoDepthFailsClosed(t *testing.T) {
	inf := NewInferrer(inferWeights())
	snap := &contracts.MarketSnapshot{
		Symbol:    "600519.SH",
		Timestamp: time.Now(),
		Price:     102.0,
		PrevClose: 100.0,
		Amount:    10_000_000,
	}

	flow, ok := inf.Estimate(snap, 2_000_000, contracts.TierRealtimeInferred, snap.Timestamp)
	assert.False(t, ok, "no book depth must not produce an estimate")
	assert.Nil(t, flow)
}
