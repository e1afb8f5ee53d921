package scanner

import (
	"sort"
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

// Input is everything one scan cycle runs against. The universe view is
// frozen; profiles are computed once per symbol per cycle and read-only
// from here on.
type Input struct {
	CycleID   string
	Timestamp time.Time

	Universe *marketstate.UniverseView
	Profiles map[string]*contracts.ThresholdProfile
	Events   map[string][]*contracts.TradingEvent

	// Intraday marks same-session use: delayed-aggregate flow is
	// inadmissible and its symbols drop at the capital funnel.
	Intraday bool
}

// Scanner narrows the whole universe to a ranked candidate list through
// three strictly sequential funnels: liquidity, pattern, capital. A
// symbol missing any required field at a stage drops at that stage.
type Scanner struct {
	cfg strategyconfig.Funnels
	log *logger.Logger
}

// New creates a scanner.
func New(cfg strategyconfig.Funnels, log *logger.Logger) *Scanner {
	return &Scanner{cfg: cfg, log: log}
}

// Scan runs one full cycle over the frozen universe. The same input
// always yields the same candidate list in the same order.
func (s *Scanner) Scan(in *Input) *contracts.ScanResult {
	res := &contracts.ScanResult{
		CycleID:      in.CycleID,
		Timestamp:    in.Timestamp,
		Dropped:      make(map[string]string),
		DataGaps:     make(map[string]bool),
		UniverseSize: len(in.Universe.Symbols),
	}

	// Deterministic iteration order regardless of map layout.
	symbols := make([]string, 0, len(in.Universe.Symbols))
	for sym := range in.Universe.Symbols {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var survivors []string
	for _, sym := range symbols {
		if reason, ok := s.liquidityFunnel(sym, in); !ok {
			drop(res, sym, reason)
			continue
		}
		survivors = append(survivors, sym)
	}
	res.AfterLiquidity = len(survivors)

	var afterPattern []string
	for _, sym := range survivors {
		if reason, ok := s.patternFunnel(sym, in); !ok {
			drop(res, sym, reason)
			continue
		}
		afterPattern = append(afterPattern, sym)
	}
	res.AfterPattern = len(afterPattern)

	var afterCapital []string
	for _, sym := range afterPattern {
		if reason, ok := s.capitalFunnel(sym, in); !ok {
			drop(res, sym, reason)
			continue
		}
		afterCapital = append(afterCapital, sym)
	}
	res.AfterCapital = len(afterCapital)

	res.Candidates = s.score(afterCapital, in, res)

	s.log.WithFields(map[string]interface{}{
		"cycle_id":        in.CycleID,
		"universe":        res.UniverseSize,
		"after_liquidity": res.AfterLiquidity,
		"after_pattern":   res.AfterPattern,
		"after_capital":   res.AfterCapital,
		"candidates":      len(res.Candidates),
	}).Info("Scan cycle complete")

	return res
}

// drop records a funnel removal and, when the reason is a missing or
// inadmissible input, marks the symbol as a data gap so the allocator
// sees "no score" rather than a zero score.
func drop(res *contracts.ScanResult, sym, reason string) {
	res.Dropped[sym] = reason
	if dataGapReasons[reason] {
		res.DataGaps[sym] = true
	}
}
