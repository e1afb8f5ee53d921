package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/capitalflow"
	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/events"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/internal/scanner"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/internal/threshold"
	"github.com/wonny/riptide/pkg/logger"
)

type fakeCaps struct{ caps map[string]float64 }

func (f *fakeCaps) MarketCap(_ context.Context, symbol string, _ time.Time) (float64, error) {
	return f.caps[symbol], nil
}

type fakePeers struct{ peers map[string][]string }

func (f *fakePeers) Peers(_ context.Context, symbol string) ([]string, error) {
	return f.peers[symbol], nil
}

type fakePortfolio struct {
	state *contracts.PortfolioState
	err   error
}

func (f *fakePortfolio) Portfolio(context.Context) (*contracts.PortfolioState, error) {
	return f.state, f.err
}

type recordingPersister struct {
	mu           sync.Mutex
	cycles       []*contracts.CycleRecord
	scans        []*contracts.ScanResult
	decisions    [][]contracts.AllocationDecision
	events       [][]*contracts.TradingEvent
	calibrations int
}

func (r *recordingPersister) SaveCycle(_ context.Context, rec *contracts.CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, rec)
	return nil
}

func (r *recordingPersister) SaveScanResult(_ context.Context, _ time.Time, res *contracts.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, res)
	return nil
}

func (r *recordingPersister) SaveDecisions(_ context.Context, _ time.Time, _ string, ds []contracts.AllocationDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, ds)
	return nil
}

func (r *recordingPersister) SaveEvents(_ context.Context, _ time.Time, _ string, evts []*contracts.TradingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evts)
	return nil
}

func (r *recordingPersister) SaveCalibration(_ context.Context, _ time.Time, _, _, _, _ float64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calibrations++
	return nil
}

// flowStub answers the detailed tier with a fixed inflow, except for
// symbols marked as failing, which emulate a vendor outage.
type flowStub struct {
	inflow float64
	fail   map[string]bool
}

func (s *flowStub) MainFlow(_ context.Context, symbol string) (*contracts.CapitalFlowSnapshot, error) {
	if s.fail[symbol] {
		return nil, errors.New("vendor timeout")
	}
	return &contracts.CapitalFlowSnapshot{
		Symbol:         symbol,
		Timestamp:      time.Now(),
		MainNetInflow:  s.inflow,
		MainBuyAmount:  s.inflow,
		MainSellAmount: 0,
	}, nil
}

func shanghaiTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return time.Date(2026, 3, 2, hour, min, 0, 0, loc) // Monday
}

func applySnap(t *testing.T, book *marketstate.Book, sym string, ts time.Time, price, prevClose float64, volume int64, amount float64) {
	t.Helper()
	require.NoError(t, book.Apply(&contracts.MarketSnapshot{
		Symbol:    sym,
		Timestamp: ts,
		Source:    "test",
		Price:     price,
		PrevClose: prevClose,
		Volume:    volume,
		Amount:    amount,
	}))
}

func newTestEngine(t *testing.T, cfg *strategyconfig.Config, pf PortfolioSource, persister Persister) (*Engine, *marketstate.Book) {
	t.Helper()
	return newTestEngineFlow(t, cfg, pf, persister, &flowStub{inflow: 50_000_000})
}

func newTestEngineFlow(t *testing.T, cfg *strategyconfig.Config, pf PortfolioSource, persister Persister, flow *flowStub) (*Engine, *marketstate.Book) {
	t.Helper()
	log := logger.NewNop()
	clock, err := market.NewClock(cfg.Meta.Timezone)
	require.NoError(t, err)

	thresholds := threshold.NewEngine(cfg.Thresholds, clock, log)
	chain := capitalflow.NewChain(
		[]capitalflow.Provider{capitalflow.NewRealtimeDetailedProvider(flow)},
		cfg.Chain, thresholds, log,
	)

	router := events.NewRouter(log)
	router.Register(events.NewBreakoutDetector())
	router.Register(events.NewLeaderDetector())
	router.Register(events.NewDipBuyDetector())
	router.Register(events.NewAuctionDetector())

	book := marketstate.NewBook(cfg.Meta.RollingWindow, clock, log)

	eng := New(Deps{
		Config:     cfg,
		ConfigHash: "test-hash",
		Clock:      clock,
		Thresholds: thresholds,
		Chain:      chain,
		Router:     router,
		Scanner:    scanner.New(cfg.Funnels, log),
		Book:       book,
		Caps: &fakeCaps{caps: map[string]float64{
			"600519.SH": 2.5e12,
			"000858.SZ": 1.5e12,
		}},
		Peers: &fakePeers{peers: map[string][]string{
			"600519.SH": {"600036.SH", "601318.SH"},
		}},
		Portfolio: pf,
		Persister: persister,
		Log:       log,
	})
	eng.SetSentimentStage(contracts.StageMainRally)
	return eng, book
}

// populate seeds one mid-session universe where 600519.SH outruns both
// sector peers and clears every funnel, while the peers fall below the
// liquidity floor.
func populate(t *testing.T, book *marketstate.Book) {
	t.Helper()
	times := []time.Time{shanghaiTime(t, 10, 0), shanghaiTime(t, 10, 10), shanghaiTime(t, 10, 20)}

	prices := []float64{1690, 1750, 1720}
	for i, ts := range times {
		applySnap(t, book, "600519.SH", ts, prices[i], 1660,
			int64(i+1)*1_000_000, float64(i+1)*166_000_000)
	}
	for i, ts := range times {
		applySnap(t, book, "600036.SH", ts, 1005, 1000, int64(i+1)*1000, float64(i+1)*3_000_000)
		applySnap(t, book, "601318.SH", ts, 1010, 1000, int64(i+1)*1000, float64(i+1)*3_000_000)
	}
}

// populateBreakout seeds a tight three-tick platform and a fourth tick
// that clears it on roughly triple volume.
func populateBreakout(t *testing.T, book *marketstate.Book, sym string) {
	t.Helper()
	times := []time.Time{
		shanghaiTime(t, 10, 0), shanghaiTime(t, 10, 10),
		shanghaiTime(t, 10, 20), shanghaiTime(t, 10, 30),
	}
	prices := []float64{1700, 1705, 1702, 1730}
	volumes := []int64{1_000_000, 2_000_000, 3_000_000, 7_000_000}
	amounts := []float64{170_000_000, 340_000_000, 510_000_000, 700_000_000}
	for i, ts := range times {
		applySnap(t, book, sym, ts, prices[i], 1660, volumes[i], amounts[i])
	}
}

// populateDipBuy seeds a rise to 105 and a pullback to 102 on drying
// volume: above support, well off the high, last interval thin.
func populateDipBuy(t *testing.T, book *marketstate.Book, sym string) {
	t.Helper()
	times := []time.Time{
		shanghaiTime(t, 10, 0), shanghaiTime(t, 10, 10),
		shanghaiTime(t, 10, 20), shanghaiTime(t, 10, 30),
	}
	prices := []float64{100, 103, 105, 102}
	volumes := []int64{1_000_000, 2_000_000, 3_000_000, 3_300_000}
	amounts := []float64{150_000_000, 300_000_000, 450_000_000, 500_000_000}
	for i, ts := range times {
		applySnap(t, book, sym, ts, prices[i], 100, volumes[i], amounts[i])
	}
}

func eventTypes(c contracts.Candidate) []contracts.EventType {
	out := make([]contracts.EventType, 0, len(c.Events))
	for _, e := range c.Events {
		out = append(out, e.Type)
	}
	return out
}

func TestRunCycleEndToEnd(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	pf := &fakePortfolio{state: &contracts.PortfolioState{
		AsOf: time.Now(),
		Cash: 1_000_000,
	}}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populate(t, book)

	rec, err := eng.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, contracts.CycleCompleted, rec.Status)
	assert.Equal(t, 3, rec.UniverseSize)
	assert.Equal(t, 1, rec.CandidateCount)
	assert.Equal(t, "test-hash", rec.ConfigHash)

	require.Len(t, persister.scans, 1)
	res := persister.scans[0]
	require.Len(t, res.Candidates, 1)
	top := res.Candidates[0]
	assert.Equal(t, "600519.SH", top.Symbol)
	assert.Equal(t, 1, top.Rank)

	// The leader setup is the only one present: price strength 3.6%
	// against peer average 0.75%, both peers outrun.
	require.NotEmpty(t, top.Events)
	assert.Equal(t, contracts.EventLeaderCandidate, top.Events[0].Type)

	// Sole survivor: all capital deploys into one position at the cap.
	require.Len(t, persister.decisions, 1)
	ds := persister.decisions[0]
	require.Len(t, ds, 1)
	assert.Equal(t, contracts.ActionBuy, ds[0].Action)
	assert.Equal(t, "600519.SH", ds[0].Symbol)
	assert.InDelta(t, cfg.Allocation.SinglePositionCap, ds[0].TargetWeight, 1e-9)

	require.Len(t, persister.cycles, 1)
	assert.Equal(t, rec.CycleID, persister.cycles[0].CycleID)
}

func TestRunCycleRescorerReflectsLastScan(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	pf := &fakePortfolio{state: &contracts.PortfolioState{AsOf: time.Now(), Cash: 1_000_000}}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populate(t, book)

	_, err := eng.RunCycle(context.Background())
	require.NoError(t, err)

	score, ok := eng.CurrentScore("600519.SH")
	assert.True(t, ok)
	assert.Greater(t, score, 0.0)

	// Peers were evaluated and dropped: they rescore to zero, which is
	// different from never having been seen.
	score, ok = eng.CurrentScore("600036.SH")
	assert.True(t, ok)
	assert.Zero(t, score)

	_, ok = eng.CurrentScore("999999.SZ")
	assert.False(t, ok)
}

func TestRunCycleAbortsOnBudget(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Meta.CycleBudgetMs = 0
	persister := &recordingPersister{}
	pf := &fakePortfolio{state: &contracts.PortfolioState{AsOf: time.Now(), Cash: 1_000_000}}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populate(t, book)

	rec, err := eng.RunCycle(context.Background())
	assert.ErrorIs(t, err, contracts.ErrCycleAborted)
	assert.Equal(t, contracts.CycleAborted, rec.Status)

	// Aborted cycles persist only their record, never partial results.
	assert.Len(t, persister.cycles, 1)
	assert.Empty(t, persister.scans)
	assert.Empty(t, persister.decisions)
}

func TestRunCyclePortfolioUnavailable(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	pf := &fakePortfolio{err: contracts.ErrPortfolioUnavailable}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populate(t, book)

	rec, err := eng.RunCycle(context.Background())
	require.NoError(t, err)

	// The scan still completes; the allocator stays silent.
	assert.Equal(t, contracts.CycleCompleted, rec.Status)
	assert.Equal(t, 1, rec.CandidateCount)
	assert.Equal(t, 0, rec.DecisionCount)
}

func TestSetSentimentStageRejectsUnknown(t *testing.T) {
	cfg := strategyconfig.Default()
	eng, _ := newTestEngine(t, cfg, &fakePortfolio{}, &recordingPersister{})

	assert.False(t, eng.SetSentimentStage(contracts.SentimentStage("EUPHORIA")))
	assert.Equal(t, contracts.StageMainRally, eng.Stage())

	assert.True(t, eng.SetSentimentStage(contracts.StageDecline))
	assert.Equal(t, contracts.StageDecline, eng.Stage())
}

func TestRecalibratePersists(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	eng, _ := newTestEngine(t, cfg, &fakePortfolio{}, persister)

	rec, err := eng.Recalibrate(context.Background(), 0.30, 0.50)
	require.NoError(t, err)
	assert.Equal(t, "tighten", rec.Direction)
	assert.Equal(t, 1, persister.calibrations)
	assert.InDelta(t, 1.05, eng.BaseMultiplier(), 1e-9)
}

func TestFilePortfolioRoundTrip(t *testing.T) {
	path := t.TempDir() + "/portfolio.json"
	src := NewFilePortfolio(path)

	_, err := src.Portfolio(context.Background())
	assert.ErrorIs(t, err, contracts.ErrPortfolioUnavailable)

	writeJSON(t, path, `{"as_of":"2026-03-02T10:00:00+08:00","cash":500000,"positions":[{"symbol":"600519.SH","shares":100,"cost_basis":1700,"entry_time":"2026-02-27T10:00:00+08:00","current_price":1720}]}`)
	state, err := src.Portfolio(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 500_000, state.Cash, 1e-9)
	require.Len(t, state.Positions, 1)
	assert.Equal(t, "600519.SH", state.Positions[0].Symbol)

	writeJSON(t, path, `{not json`)
	_, err = src.Portfolio(context.Background())
	assert.ErrorIs(t, err, contracts.ErrPortfolioUnavailable)
}

func TestFilePortfolioMaxAge(t *testing.T) {
	path := t.TempDir() + "/portfolio.json"
	writeJSON(t, path, `{"as_of":"2026-03-02T10:00:00+08:00","cash":1}`)

	src := NewFilePortfolio(path)
	src.MaxAge = time.Minute

	_, err := src.Portfolio(context.Background())
	assert.ErrorIs(t, err, contracts.ErrPortfolioUnavailable)
	assert.ErrorIs(t, err, contracts.ErrStaleData)
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunCycleBreakoutCandidate(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	pf := &fakePortfolio{state: &contracts.PortfolioState{AsOf: time.Now(), Cash: 1_000_000}}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populateBreakout(t, book, "600519.SH")

	rec, err := eng.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.CycleCompleted, rec.Status)

	res := eng.LastResult()
	require.Len(t, res.Candidates, 1)
	top := res.Candidates[0]
	assert.Equal(t, "600519.SH", top.Symbol)
	assert.Contains(t, eventTypes(top), contracts.EventBreakout)

	require.Len(t, persister.decisions, 1)
	require.Len(t, persister.decisions[0], 1)
	assert.Equal(t, contracts.ActionBuy, persister.decisions[0][0].Action)
}

func TestRunCycleDipBuyCandidate(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}
	pf := &fakePortfolio{state: &contracts.PortfolioState{AsOf: time.Now(), Cash: 1_000_000}}
	eng, book := newTestEngine(t, cfg, pf, persister)
	populateDipBuy(t, book, "000858.SZ")

	rec, err := eng.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.CycleCompleted, rec.Status)

	res := eng.LastResult()
	require.Len(t, res.Candidates, 1)
	top := res.Candidates[0]
	assert.Equal(t, "000858.SZ", top.Symbol)
	assert.Contains(t, eventTypes(top), contracts.EventDipBuy)
}

func TestRunCycleHoldingFlowOutageNotSold(t *testing.T) {
	cfg := strategyconfig.Default()
	persister := &recordingPersister{}

	// A holding from a prior session whose flow vendor is down this
	// cycle, against a fresh candidate that outscores anything.
	pf := &fakePortfolio{state: &contracts.PortfolioState{
		AsOf: time.Now(),
		Cash: 500_000,
		Positions: []contracts.Position{{
			Symbol:       "000858.SZ",
			Shares:       100,
			CostBasis:    95,
			EntryTime:    shanghaiTime(t, 10, 0).AddDate(0, 0, -3),
			CurrentPrice: 102,
		}},
	}}
	flow := &flowStub{inflow: 50_000_000, fail: map[string]bool{"000858.SZ": true}}
	eng, book := newTestEngineFlow(t, cfg, pf, persister, flow)
	populate(t, book)
	populateDipBuy(t, book, "000858.SZ")

	_, err := eng.RunCycle(context.Background())
	require.NoError(t, err)

	res := eng.LastResult()
	assert.Contains(t, res.Dropped["000858.SZ"], "no flow data")
	assert.True(t, res.DataGaps["000858.SZ"])

	// No flow means no recomputed score, so the holding contest skips
	// the position instead of selling against a substituted zero.
	_, ok := eng.CurrentScore("000858.SZ")
	assert.False(t, ok)

	require.Len(t, persister.decisions, 1)
	for _, d := range persister.decisions[0] {
		assert.NotEqual(t, "000858.SZ", d.Symbol)
	}
	require.Len(t, persister.decisions[0], 1)
	assert.Equal(t, contracts.ActionBuy, persister.decisions[0][0].Action)
	assert.Equal(t, "600519.SH", persister.decisions[0][0].Symbol)
}
