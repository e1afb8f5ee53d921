package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/config"
	"github.com/wonny/riptide/pkg/httputil"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// AggregateScraper pulls the vendor's one-session-delayed flow totals
// off their public page. Last-resort tier only; the chain tags its
// output DELAYED_AGGREGATE and intraday callers refuse it.
type AggregateScraper struct {
	cfg    config.DelayedVendorConfig
	client *httputil.Client
	log    *logger.Logger
}

// NewAggregateScraper wires the page endpoint with the polite one
// request per second limit.
func NewAggregateScraper(cfg config.DelayedVendorConfig, limiter *redis.RateLimiter, log *logger.Logger) *AggregateScraper {
	client := httputil.New(log).WithRateLimiter(limiter, redis.DelayedRateLimit)
	return &AggregateScraper{cfg: cfg, client: client, log: log}
}

// SessionAggregate scrapes the symbol's whole-session flow row. The
// snapshot is stamped with the page's session date at close, not with
// scrape time, so freshness math sees it for what it is.
func (s *AggregateScraper) SessionAggregate(ctx context.Context, symbol string) (*contracts.CapitalFlowSnapshot, error) {
	u := fmt.Sprintf("%s/flow/%s.html", s.cfg.BaseURL, url.PathEscape(symbol))

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("delayed vendor status %d for %s", resp.StatusCode, symbol)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("delayed vendor parse %s: %w", symbol, err)
	}

	row := doc.Find("table.flow-summary tbody tr").First()
	if row.Length() == 0 {
		return nil, fmt.Errorf("delayed vendor %s: %w", symbol, contracts.ErrDataUnavailable)
	}

	cells := row.Find("td")
	if cells.Length() < 5 {
		return nil, fmt.Errorf("delayed vendor %s: malformed row", symbol)
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(cells.Eq(0).Text()))
	if err != nil {
		return nil, fmt.Errorf("delayed vendor %s: bad date: %w", symbol, err)
	}
	mainNet, err := parseYuan(cells.Eq(1).Text())
	if err != nil {
		return nil, fmt.Errorf("delayed vendor %s: bad main net: %w", symbol, err)
	}
	mainBuy, _ := parseYuan(cells.Eq(2).Text())
	mainSell, _ := parseYuan(cells.Eq(3).Text())
	retailNet, _ := parseYuan(cells.Eq(4).Text())

	loc := date.Location()
	closeTime := time.Date(date.Year(), date.Month(), date.Day(), 15, 0, 0, 0, loc)

	return &contracts.CapitalFlowSnapshot{
		Symbol:          symbol,
		Timestamp:       closeTime,
		MainNetInflow:   mainNet,
		MainBuyAmount:   mainBuy,
		MainSellAmount:  mainSell,
		RetailNetInflow: retailNet,
		Tier:            contracts.TierDelayedAggregate,
	}, nil
}

// parseYuan handles the page's 亿/万 suffixed numbers alongside plain
// figures with thousands separators.
func parseYuan(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "亿"):
		mult = 1e8
		s = strings.TrimSuffix(s, "亿")
	case strings.HasSuffix(s, "万"):
		mult = 1e4
		s = strings.TrimSuffix(s, "万")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}
