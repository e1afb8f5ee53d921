package marketstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/pkg/logger"
)

func testBook(t *testing.T, window int) *Book {
	t.Helper()
	clock, err := market.NewClock("Asia/Shanghai")
	require.NoError(t, err)
	return NewBook(window, clock, logger.NewNop())
}

func snapAt(sym string, ts time.Time, price float64, vol int64) *contracts.MarketSnapshot {
	return &contracts.MarketSnapshot{
		Symbol:    sym,
		Timestamp: ts,
		Price:     price,
		PrevClose: price,
		Volume:    vol,
		Amount:    float64(vol) * price,
	}
}

func cst(h, m int) time.Time {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	return time.Date(2026, 3, 2, h, m, 0, 0, loc) // a Monday
}

func TestBookRejectsOldTimestamp(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 1000)))

	err := b.Apply(snapAt("600519.SH", cst(10, 4), 101, 1100))
	assert.ErrorIs(t, err, contracts.ErrOutOfOrder)

	err = b.Apply(snapAt("600519.SH", cst(10, 5), 101, 1100))
	assert.ErrorIs(t, err, contracts.ErrOutOfOrder, "equal timestamp is not after")
}

func TestBookRejectsShrinkingVolume(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 5000)))

	err := b.Apply(snapAt("600519.SH", cst(10, 6), 100.5, 4000))
	assert.ErrorIs(t, err, contracts.ErrOutOfOrder)
}

func TestBookRejectionLeavesStateUntouched(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 5000)))
	_ = b.Apply(snapAt("600519.SH", cst(10, 4), 99, 4000))

	view := b.Snapshot()
	require.Contains(t, view.Symbols, "600519.SH")
	assert.Equal(t, 100.0, view.Symbols["600519.SH"].Snapshot.Price)
}

func TestBookIntervalVolumes(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 1000)))
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 6), 101, 3500)))
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 7), 102, 4000)))

	view := b.Snapshot()
	sv := view.Symbols["600519.SH"]
	assert.Equal(t, []float64{100, 101, 102}, sv.Prices)
	assert.Equal(t, []int64{1000, 2500, 500}, sv.Volumes)
}

func TestBookWindowCap(t *testing.T) {
	b := testBook(t, 3)
	for i := 0; i < 5; i++ {
		ts := cst(10, 5).Add(time.Duration(i) * time.Minute)
		require.NoError(t, b.Apply(snapAt("600519.SH", ts, 100+float64(i), int64(1000*(i+1)))))
	}

	sv := b.Snapshot().Symbols["600519.SH"]
	assert.Equal(t, []float64{102, 103, 104}, sv.Prices)
	assert.Len(t, sv.Volumes, 3)
}

func TestBookCollectsAuctionPrices(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(9, 16), 97, 100)))
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(9, 20), 99, 200)))
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 0), 101, 1200)))

	sv := b.Snapshot().Symbols["600519.SH"]
	assert.Equal(t, []float64{97, 99}, sv.AuctionPrices)
}

func TestBookSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 1000)))

	view := b.Snapshot()
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 6), 150, 2000)))

	assert.Equal(t, 100.0, view.Symbols["600519.SH"].Snapshot.Price)
	assert.Equal(t, []float64{100}, view.Symbols["600519.SH"].Prices)
}

func TestBookSnapshotVersionIncrements(t *testing.T) {
	b := testBook(t, 10)
	v1 := b.Snapshot().Version
	v2 := b.Snapshot().Version
	assert.Greater(t, v2, v1)
}

func TestBookNewDayResetsWindows(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(14, 45), 100, 90000)))

	nextDay := cst(10, 0).Add(24 * time.Hour)
	require.NoError(t, b.Apply(snapAt("600519.SH", nextDay, 102, 500)))

	sv := b.Snapshot().Symbols["600519.SH"]
	assert.Equal(t, []float64{102}, sv.Prices)
	assert.Equal(t, []int64{500}, sv.Volumes, "fresh day volume is the interval itself")
}

func TestBookSetFlow(t *testing.T) {
	b := testBook(t, 10)
	require.NoError(t, b.Apply(snapAt("600519.SH", cst(10, 5), 100, 1000)))
	b.SetFlow("600519.SH", &contracts.CapitalFlowSnapshot{
		Symbol:        "600519.SH",
		MainNetInflow: 1_000_000,
		Tier:          contracts.TierRealtimeDetailed,
	})

	sv := b.Snapshot().Symbols["600519.SH"]
	require.NotNil(t, sv.Flow)
	assert.Equal(t, contracts.TierRealtimeDetailed, sv.Flow.Tier)
}
