package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

func testScanner() *Scanner {
	return New(strategyconfig.Default().Funnels, logger.NewNop())
}

func profileFor(sym string) *contracts.ThresholdProfile {
	return &contracts.ThresholdProfile{
		Symbol:          sym,
		CapTier:         contracts.CapTierMid,
		MinMainInflow:   10_000_000,
		MinInflowRatio:  0.04,
		MaxRiskScore:    0.90,
		LiquidityFloor:  100_000_000,
		ConfidenceFloor: 0.55,
	}
}

// viewFor builds a symbol sitting mid-range in its window.
func viewFor(sym string, amount float64, flow *contracts.CapitalFlowSnapshot) *marketstate.SymbolView {
	return &marketstate.SymbolView{
		Snapshot: &contracts.MarketSnapshot{
			Symbol:    sym,
			Timestamp: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
			Price:     100,
			PrevClose: 98,
			Amount:    amount,
			Volume:    int64(amount / 100),
		},
		Prices: []float64{95, 100, 105, 98, 100},
		Flow:   flow,
	}
}

func goodFlow(sym string, inflow float64) *contracts.CapitalFlowSnapshot {
	return &contracts.CapitalFlowSnapshot{
		Symbol:        sym,
		Timestamp:     time.Date(2026, 3, 2, 10, 29, 30, 0, time.UTC),
		MainNetInflow: inflow,
		Tier:          contracts.TierRealtimeDetailed,
	}
}

func breakoutEvent(sym string, conf float64) *contracts.TradingEvent {
	return &contracts.TradingEvent{
		Type:       contracts.EventBreakout,
		Symbol:     sym,
		Timestamp:  time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Confidence: conf,
		TraceID:    "cycle-1",
	}
}

func threeSymbolInput() *Input {
	// A clears everything; B fails the capital funnel on ratio; C fails
	// liquidity outright.
	return &Input{
		CycleID:   "cycle-1",
		Timestamp: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		Intraday:  true,
		Universe: &marketstate.UniverseView{
			Version: 7,
			Symbols: map[string]*marketstate.SymbolView{
				"600519.SH": viewFor("600519.SH", 500_000_000, goodFlow("600519.SH", 50_000_000)),
				"000858.SZ": viewFor("000858.SZ", 400_000_000, goodFlow("000858.SZ", 2_000_000)),
				"300750.SZ": viewFor("300750.SZ", 5_000_000, goodFlow("300750.SZ", 80_000_000)),
			},
		},
		Profiles: map[string]*contracts.ThresholdProfile{
			"600519.SH": profileFor("600519.SH"),
			"000858.SZ": profileFor("000858.SZ"),
			"300750.SZ": profileFor("300750.SZ"),
		},
		Events: map[string][]*contracts.TradingEvent{
			"600519.SH": {breakoutEvent("600519.SH", 0.8)},
			"000858.SZ": {breakoutEvent("000858.SZ", 0.7)},
			"300750.SZ": {breakoutEvent("300750.SZ", 0.9)},
		},
	}
}

func TestScanRoundTripThreeSymbols(t *testing.T) {
	res := testScanner().Scan(threeSymbolInput())

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "600519.SH", res.Candidates[0].Symbol)
	assert.Equal(t, 1, res.Candidates[0].Rank)
	assert.Equal(t, 1.0, res.Candidates[0].FlowPercentile, "lone survivor tops the percentile scale")

	assert.Equal(t, 3, res.UniverseSize)
	assert.Equal(t, 2, res.AfterLiquidity)
	assert.Equal(t, 2, res.AfterPattern)
	assert.Equal(t, 1, res.AfterCapital)
	assert.Contains(t, res.Dropped["300750.SZ"], "liquidity")
	assert.Contains(t, res.Dropped["000858.SZ"], "capital")
}

func TestScanIdempotent(t *testing.T) {
	s := testScanner()
	first := s.Scan(threeSymbolInput())
	second := s.Scan(threeSymbolInput())

	require.Equal(t, len(first.Candidates), len(second.Candidates))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].Symbol, second.Candidates[i].Symbol)
		assert.Equal(t, first.Candidates[i].Score, second.Candidates[i].Score)
		assert.Equal(t, first.Candidates[i].Rank, second.Candidates[i].Rank)
	}
	assert.Equal(t, first.Dropped, second.Dropped)
}

func TestScanNoFlowExcluded(t *testing.T) {
	in := threeSymbolInput()
	// Qualifies on liquidity and pattern, but the chain had nothing.
	in.Universe.Symbols["600519.SH"].Flow = nil

	res := testScanner().Scan(in)

	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.Dropped["600519.SH"], "no flow data")
}

func TestScanDelayedTierInadmissibleIntraday(t *testing.T) {
	in := threeSymbolInput()
	in.Universe.Symbols["600519.SH"].Flow.Tier = contracts.TierDelayedAggregate

	res := testScanner().Scan(in)
	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.Dropped["600519.SH"], "inadmissible intraday")
}

func TestScanDelayedTierAllowedOffline(t *testing.T) {
	in := threeSymbolInput()
	in.Intraday = false
	in.Universe.Symbols["600519.SH"].Flow.Tier = contracts.TierDelayedAggregate

	res := testScanner().Scan(in)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "600519.SH", res.Candidates[0].Symbol)
}

func TestScanNoEventDropsAtPattern(t *testing.T) {
	in := threeSymbolInput()
	in.Events["600519.SH"] = nil

	res := testScanner().Scan(in)
	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.Dropped["600519.SH"], "no qualifying event")
}

func TestScanAuctionEventAloneDoesNotQualify(t *testing.T) {
	in := threeSymbolInput()
	in.Events["600519.SH"] = []*contracts.TradingEvent{{
		Type:       contracts.EventAuctionTransition,
		Symbol:     "600519.SH",
		Confidence: 0.95,
	}}

	res := testScanner().Scan(in)
	assert.Empty(t, res.Candidates)
}

func TestScanTieBreakOnFlowPercentile(t *testing.T) {
	in := &Input{
		CycleID:   "cycle-2",
		Timestamp: time.Now(),
		Intraday:  true,
		Universe: &marketstate.UniverseView{
			Symbols: map[string]*marketstate.SymbolView{
				"600519.SH": viewFor("600519.SH", 500_000_000, goodFlow("600519.SH", 30_000_000)),
				"000858.SZ": viewFor("000858.SZ", 500_000_000, goodFlow("000858.SZ", 60_000_000)),
			},
		},
		Profiles: map[string]*contracts.ThresholdProfile{
			"600519.SH": profileFor("600519.SH"),
			"000858.SZ": profileFor("000858.SZ"),
		},
		// Same confidence: the composite only differs on flow percentile,
		// which also is the tie-break.
		Events: map[string][]*contracts.TradingEvent{
			"600519.SH": {breakoutEvent("600519.SH", 0.8)},
			"000858.SZ": {breakoutEvent("000858.SZ", 0.8)},
		},
	}

	res := testScanner().Scan(in)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "000858.SZ", res.Candidates[0].Symbol, "higher inflow ratio ranks first")
	assert.Greater(t, res.Candidates[0].FlowPercentile, res.Candidates[1].FlowPercentile)
}

func TestScanZeroCandidatesIsValidOutcome(t *testing.T) {
	in := threeSymbolInput()
	for _, sym := range []string{"600519.SH", "000858.SZ", "300750.SZ"} {
		in.Universe.Symbols[sym].Flow = nil
	}

	res := testScanner().Scan(in)
	assert.NotNil(t, res)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 3, res.UniverseSize, "a zero-candidate cycle still reports its accounting")
}

func TestScanDataGapsDistinguishedFromFailures(t *testing.T) {
	in := threeSymbolInput()
	in.Universe.Symbols["600519.SH"].Flow = nil

	res := testScanner().Scan(in)

	// Missing flow is a gap: the symbol was never scored this cycle.
	assert.True(t, res.DataGaps["600519.SH"])

	// A weak inflow and a thin day amount are verdicts, not gaps.
	assert.Contains(t, res.Dropped["000858.SZ"], "inflow below")
	assert.False(t, res.DataGaps["000858.SZ"])
	assert.Contains(t, res.Dropped["300750.SZ"], "below floor")
	assert.False(t, res.DataGaps["300750.SZ"])
}

func TestScanDelayedTierIsDataGapIntraday(t *testing.T) {
	in := threeSymbolInput()
	in.Universe.Symbols["600519.SH"].Flow.Tier = contracts.TierDelayedAggregate

	res := testScanner().Scan(in)
	assert.True(t, res.DataGaps["600519.SH"])
}

func TestScanBreakoutOverridesExtensionCutoff(t *testing.T) {
	in := threeSymbolInput()
	sv := in.Universe.Symbols["600519.SH"]
	sv.Prices = []float64{95, 100, 105, 98, 110}
	sv.Snapshot.Price = 110 // window high, relative position 1.0

	res := testScanner().Scan(in)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "600519.SH", res.Candidates[0].Symbol)
}

func TestScanExtendedWithoutBreakoutStillDrops(t *testing.T) {
	in := threeSymbolInput()
	sv := in.Universe.Symbols["600519.SH"]
	sv.Prices = []float64{95, 100, 105, 98, 110}
	sv.Snapshot.Price = 110
	in.Events["600519.SH"] = []*contracts.TradingEvent{{
		Type:       contracts.EventLeaderCandidate,
		Symbol:     "600519.SH",
		Timestamp:  in.Timestamp,
		Confidence: 0.8,
		TraceID:    "cycle-1",
	}}

	res := testScanner().Scan(in)
	assert.Empty(t, res.Candidates)
	assert.Contains(t, res.Dropped["600519.SH"], "too extended")
	assert.False(t, res.DataGaps["600519.SH"])
}
