package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/config"
	"github.com/wonny/riptide/pkg/httputil"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// FlowVendor pulls per-order main-participant flow from the premium
// REST endpoint. It backs the detailed tier and nothing else.
type FlowVendor struct {
	cfg    config.FlowVendorConfig
	client *httputil.Client
}

// NewFlowVendor wires the premium feed's credentials and shared rate
// limit into a retrying client.
func NewFlowVendor(cfg config.FlowVendorConfig, limiter *redis.RateLimiter, log *logger.Logger) *FlowVendor {
	client := httputil.New(log).WithRateLimiter(limiter, redis.FlowRateLimit)
	return &FlowVendor{cfg: cfg, client: client}
}

// MainFlow fetches the symbol's current flow snapshot.
func (v *FlowVendor) MainFlow(ctx context.Context, symbol string) (*contracts.CapitalFlowSnapshot, error) {
	u := fmt.Sprintf("%s/v1/flow?symbol=%s&app_key=%s",
		v.cfg.BaseURL, url.QueryEscape(symbol), url.QueryEscape(v.cfg.AppKey))

	resp, err := v.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flow vendor status %d for %s", resp.StatusCode, symbol)
	}

	var w wireFlow
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("flow vendor decode %s: %w", symbol, err)
	}
	return w.toFlowSnapshot(), nil
}

// QuoteVendor pulls level-1 quotes from the REST endpoint. The live
// inferred tier reads it directly; the poller uses it to keep the book
// warm for symbols the websocket does not cover.
type QuoteVendor struct {
	cfg    config.QuoteVendorConfig
	client *httputil.Client
}

// NewQuoteVendor wires the quote endpoint and its shared rate limit.
func NewQuoteVendor(cfg config.QuoteVendorConfig, limiter *redis.RateLimiter, log *logger.Logger) *QuoteVendor {
	client := httputil.New(log).WithRateLimiter(limiter, redis.QuoteRateLimit)
	return &QuoteVendor{cfg: cfg, client: client}
}

// Quote fetches the symbol's current level-1 snapshot.
func (v *QuoteVendor) Quote(ctx context.Context, symbol string) (*contracts.MarketSnapshot, error) {
	u := fmt.Sprintf("%s/v1/quote?symbol=%s&token=%s",
		v.cfg.RESTURL, url.QueryEscape(symbol), url.QueryEscape(v.cfg.Token))

	resp, err := v.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote vendor status %d for %s", resp.StatusCode, symbol)
	}

	var w wireQuote
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("quote vendor decode %s: %w", symbol, err)
	}
	return w.toSnapshot("rest"), nil
}

// Profile fetches the symbol's total market cap in yuan and its sector
// code. Vendors update profiles overnight, so one fetch per day before
// the auction is enough.
func (v *QuoteVendor) Profile(ctx context.Context, symbol string) (capYuan float64, sector string, err error) {
	u := fmt.Sprintf("%s/v1/profile?symbol=%s&token=%s",
		v.cfg.RESTURL, url.QueryEscape(symbol), url.QueryEscape(v.cfg.Token))

	resp, err := v.client.Get(ctx, u)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("profile vendor status %d for %s", resp.StatusCode, symbol)
	}

	var w wireProfile
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return 0, "", fmt.Errorf("profile vendor decode %s: %w", symbol, err)
	}
	if w.MarketCapYuan <= 0 {
		return 0, "", fmt.Errorf("profile vendor empty cap for %s", symbol)
	}
	return w.MarketCapYuan, w.Sector, nil
}
