package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/config"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// nopLimiter is a rate limiter over a disabled redis client: every
// request is allowed, which is what unit tests want.
func nopLimiter() *redis.RateLimiter {
	return redis.NewRateLimiter(&redis.Client{}, "test")
}

func TestWireQuoteToSnapshot(t *testing.T) {
	q := &wireQuote{
		Symbol:    "600519.SH",
		Timestamp: 1767340800000,
		Price:     101.5,
		PrevClose: 100.0,
		Open:      100.2,
		High:      102.0,
		Low:       99.8,
		Volume:    123456,
		Amount:    12_500_000,
		Bids:      []wireLevel{{Price: 101.4, Size: 300}},
		Asks:      []wireLevel{{Price: 101.6, Size: 200}},
	}

	snap := q.toSnapshot("ws")
	require.NoError(t, snap.Validate())
	assert.Equal(t, "ws", snap.Source)
	require.NotNil(t, snap.Bar)
	assert.Equal(t, 102.0, snap.Bar.High)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(300), snap.Bids[0].Size)
}

func TestFlowVendorMainFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "600519.SH", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"600519.SH","ts":1767340800000,"main_net":25000000,"main_buy":60000000,"main_sell":35000000,"retail_net":-25000000}`))
	}))
	defer srv.Close()

	v := NewFlowVendor(config.FlowVendorConfig{BaseURL: srv.URL, AppKey: "k"}, nopLimiter(), logger.NewNop())
	flow, err := v.MainFlow(context.Background(), "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, contracts.TierRealtimeDetailed, flow.Tier)
	assert.Equal(t, 25_000_000.0, flow.MainNetInflow)
}

func TestFlowVendorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	v := NewFlowVendor(config.FlowVendorConfig{BaseURL: srv.URL}, nopLimiter(), logger.NewNop())
	_, err := v.MainFlow(context.Background(), "600519.SH")
	assert.Error(t, err)
}

func TestAggregateScraper(t *testing.T) {
	page := `<html><body>
	<table class="flow-summary"><tbody>
	<tr><td>2026-03-02</td><td>1.25亿</td><td>3.10亿</td><td>1.85亿</td><td>-1.25亿</td></tr>
	</tbody></table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	s := NewAggregateScraper(config.DelayedVendorConfig{BaseURL: srv.URL}, nopLimiter(), logger.NewNop())
	flow, err := s.SessionAggregate(context.Background(), "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, contracts.TierDelayedAggregate, flow.Tier)
	assert.InDelta(t, 1.25e8, flow.MainNetInflow, 1)
	assert.InDelta(t, -1.25e8, flow.RetailNetInflow, 1)
	assert.Equal(t, 15, flow.Timestamp.Hour(), "stamped at session close, not scrape time")
}

func TestAggregateScraperEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	s := NewAggregateScraper(config.DelayedVendorConfig{BaseURL: srv.URL}, nopLimiter(), logger.NewNop())
	_, err := s.SessionAggregate(context.Background(), "600519.SH")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestParseYuan(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.25亿", 1.25e8},
		{"3200万", 3.2e7},
		{"-0.8亿", -8e7},
		{"12,500,000", 1.25e7},
		{" 42 ", 42},
	}
	for _, tc := range cases {
		got, err := parseYuan(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-6, tc.in)
	}

	_, err := parseYuan("n/a")
	assert.Error(t, err)
}
