package scanner

import (
	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/marketstate"
)

// Funnel drop reasons fall in two classes. A symbol that failed a test
// was evaluated and rejected; its recomputed score this cycle is zero.
// A symbol whose inputs were missing or inadmissible was never
// evaluated: that is a data gap, it carries no score at all, and the
// allocator must not act on it.
const (
	reasonNoProfile   = "liquidity: no threshold profile"
	reasonNoAmount    = "liquidity: no day amount"
	reasonNoWindow    = "pattern: no price window"
	reasonNoFlow      = "capital: no flow data"
	reasonDelayedFlow = "capital: delayed tier inadmissible intraday"
)

var dataGapReasons = map[string]bool{
	reasonNoProfile:   true,
	reasonNoAmount:    true,
	reasonNoWindow:    true,
	reasonNoFlow:      true,
	reasonDelayedFlow: true,
}

// liquidityFunnel keeps symbols whose day amount clears the profile's
// liquidity floor.
func (s *Scanner) liquidityFunnel(sym string, in *Input) (string, bool) {
	sv := in.Universe.Symbols[sym]
	p := in.Profiles[sym]
	if p == nil {
		return reasonNoProfile, false
	}
	if sv.Snapshot == nil || sv.Snapshot.Amount <= 0 {
		return reasonNoAmount, false
	}
	if sv.Snapshot.Amount < p.LiquidityFloor {
		return "liquidity: below floor", false
	}
	return "", true
}

// patternFunnel keeps symbols whose price sits inside the acceptable
// relative range and that carry at least one non-auction event above
// the confidence floor.
func (s *Scanner) patternFunnel(sym string, in *Input) (string, bool) {
	sv := in.Universe.Symbols[sym]
	p := in.Profiles[sym]

	relPos, ok := relativePosition(sv)
	if !ok {
		return reasonNoWindow, false
	}
	if relPos < s.cfg.Pattern.MinRelPosition {
		return "pattern: too depressed", false
	}
	// A confirmed breakout trades above its trailing platform by
	// construction; the extension cutoff yields to it.
	if relPos > s.cfg.Pattern.MaxRelPosition && !hasBreakoutEvent(in.Events[sym], p.ConfidenceFloor) {
		return "pattern: too extended", false
	}

	if !hasQualifyingEvent(in.Events[sym], p.ConfidenceFloor) {
		return "pattern: no qualifying event", false
	}
	return "", true
}

// capitalFunnel keeps symbols whose committed flow snapshot clears the
// tier-adjusted inflow thresholds. Missing flow drops the symbol, never
// defaults to zero; delayed-aggregate flow drops during intraday use.
func (s *Scanner) capitalFunnel(sym string, in *Input) (string, bool) {
	sv := in.Universe.Symbols[sym]
	p := in.Profiles[sym]

	flow := sv.Flow
	if flow == nil {
		return reasonNoFlow, false
	}
	if in.Intraday && !flow.Tier.AdmissibleIntraday() {
		return reasonDelayedFlow, false
	}
	if flow.MainNetInflow < p.MinMainInflow {
		return "capital: inflow below threshold", false
	}
	if flow.InflowRatio(sv.Snapshot.Amount) < p.MinInflowRatio {
		return "capital: inflow ratio below threshold", false
	}
	return "", true
}

// relativePosition places the current price inside the rolling window's
// high-low range: 0 at the low, 1 at the high. A flat window puts the
// price mid-range rather than failing it.
func relativePosition(sv *marketstate.SymbolView) (float64, bool) {
	if sv.Snapshot == nil || len(sv.Prices) == 0 {
		return 0, false
	}
	high, low := sv.Prices[0], sv.Prices[0]
	for _, p := range sv.Prices[1:] {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	if high == low {
		return 0.5, true
	}
	pos := (sv.Snapshot.Price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, true
}

func hasBreakoutEvent(events []*contracts.TradingEvent, floor float64) bool {
	for _, e := range events {
		if e.Type == contracts.EventBreakout && e.Confidence >= floor {
			return true
		}
	}
	return false
}

func hasQualifyingEvent(events []*contracts.TradingEvent, floor float64) bool {
	for _, e := range events {
		if e.Type == contracts.EventAuctionTransition {
			continue
		}
		if e.Confidence >= floor {
			return true
		}
	}
	return false
}
