package commands

import (
	"fmt"

	"github.com/wonny/riptide/internal/capitalflow"
	"github.com/wonny/riptide/internal/engine"
	"github.com/wonny/riptide/internal/events"
	"github.com/wonny/riptide/internal/feed"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/internal/refdata"
	"github.com/wonny/riptide/internal/scanner"
	"github.com/wonny/riptide/internal/store"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/internal/threshold"
	"github.com/wonny/riptide/pkg/config"
	"github.com/wonny/riptide/pkg/database"
	"github.com/wonny/riptide/pkg/logger"
	"github.com/wonny/riptide/pkg/redis"
)

// App holds the assembled stack. Commands build what they need through
// newApp and release resources with Close.
type App struct {
	Cfg      *config.Config
	Strategy *strategyconfig.Config
	Hash     string
	Log      *logger.Logger

	DB    *database.DB
	Redis *redis.Client

	Clock      *market.Clock
	Thresholds *threshold.Engine
	Book       *marketstate.Book
	Chain      *capitalflow.Chain
	Router     *events.Router
	Store      *store.Store
	Engine     *engine.Engine

	MarketCaps *refdata.MarketCapRepo
	Sectors    *refdata.SectorRepo
	Baselines  *refdata.BaselineRepo
	Scraper    *feed.AggregateScraper
	QuoteV     *feed.QuoteVendor

	Symbols []string
}

// Close releases the app's connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

// newApp loads configuration and wires the full decision stack: flow
// chain richest tier first, the four detectors in registration order,
// and the engine on top.
func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	strat, _, err := strategyconfig.Load(cfg.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(strat)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	clock, err := market.NewClock(strat.Meta.Timezone)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("market clock: %w", err)
	}

	symbols, err := refdata.LoadUniverse(cfg.UniversePath)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, err
	}

	thresholds := threshold.NewEngine(strat.Thresholds, clock, log)
	book := marketstate.NewBook(strat.Meta.RollingWindow, clock, log)

	cache := redis.NewCache(rdb, "refdata")
	marketCaps := refdata.NewMarketCapRepo(db, cache, log)
	sectors := refdata.NewSectorRepo(db, cache, log)
	baselines := refdata.NewBaselineRepo(db, 0)

	limiter := redis.NewRateLimiter(rdb, "vendor")
	flowVendor := feed.NewFlowVendor(cfg.Flow, limiter, log)
	quoteVendor := feed.NewQuoteVendor(cfg.Quote, limiter, log)
	scraper := feed.NewAggregateScraper(cfg.Delayed, limiter, log)

	infer := capitalflow.NewInferrer(strat.Inference)
	chain := capitalflow.NewChain([]capitalflow.Provider{
		capitalflow.NewRealtimeDetailedProvider(flowVendor),
		capitalflow.NewRealtimeInferredProvider(quoteVendor, baselines, infer),
		capitalflow.NewTickInferredProvider(feed.NewBookTicks(book), baselines, infer),
		capitalflow.NewDelayedAggregateProvider(scraper),
	}, strat.Chain, thresholds, log)

	router := events.NewRouter(log)
	router.Register(events.NewBreakoutDetector())
	router.Register(events.NewLeaderDetector())
	router.Register(events.NewDipBuyDetector())
	router.Register(events.NewAuctionDetector())

	st := store.New(db, log)

	eng := engine.New(engine.Deps{
		Config:     strat,
		ConfigHash: hash,
		Clock:      clock,
		Thresholds: thresholds,
		Chain:      chain,
		Router:     router,
		Scanner:    scanner.New(strat.Funnels, log),
		Book:       book,
		Caps:       marketCaps,
		Peers:      sectors,
		Portfolio:  engine.NewFilePortfolio(cfg.PortfolioPath),
		Persister:  st,
		Log:        log,
	})

	return &App{
		Cfg:        cfg,
		Strategy:   strat,
		Hash:       hash,
		Log:        log,
		DB:         db,
		Redis:      rdb,
		Clock:      clock,
		Thresholds: thresholds,
		Book:       book,
		Chain:      chain,
		Router:     router,
		Store:      st,
		Engine:     eng,
		MarketCaps: marketCaps,
		Sectors:    sectors,
		Baselines:  baselines,
		Scraper:    scraper,
		QuoteV:     quoteVendor,
		Symbols:    symbols,
	}, nil
}
