package contracts

import "time"

// SourceTier identifies which rung of the degradation chain produced a
// capital-flow snapshot. Callers must not compare numbers across tiers
// without normalization, and must branch admissibility on the tag.
type SourceTier string

const (
	// TierRealtimeDetailed is the premium per-order flow feed.
	TierRealtimeDetailed SourceTier = "REALTIME_DETAILED"

	// TierRealtimeInferred is derived from level-1 book imbalance and
	// price strength when the detailed feed is unavailable.
	TierRealtimeInferred SourceTier = "REALTIME_INFERRED"

	// TierTickInferred is the same inference computed from replayed or
	// batched ticks, for non-live contexts.
	TierTickInferred SourceTier = "TICK_INFERRED"

	// TierDelayedAggregate is the vendor-aggregated, one-session-delayed
	// total. Last resort, offline analysis only.
	TierDelayedAggregate SourceTier = "DELAYED_AGGREGATE"
)

// AllTiers returns the chain's tiers in degradation order.
func AllTiers() []SourceTier {
	return []SourceTier{
		TierRealtimeDetailed,
		TierRealtimeInferred,
		TierTickInferred,
		TierDelayedAggregate,
	}
}

// Rank returns the tier's position in the chain, 0 being the richest.
// Unknown tiers rank below every real one.
func (t SourceTier) Rank() int {
	for i, known := range AllTiers() {
		if t == known {
			return i
		}
	}
	return len(AllTiers())
}

// AdmissibleIntraday reports whether the tier may back a same-session
// decision. Delayed aggregates never qualify.
func (t SourceTier) AdmissibleIntraday() bool {
	return t != TierDelayedAggregate && t.Rank() < len(AllTiers())
}

// CapitalFlowSnapshot estimates net directional money movement for one
// symbol at one timestamp. A snapshot always carries its source tier.
type CapitalFlowSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	MainNetInflow   float64 `json:"main_net_inflow"` // signed, yuan
	MainBuyAmount   float64 `json:"main_buy_amount"`
	MainSellAmount  float64 `json:"main_sell_amount"`
	RetailNetInflow float64 `json:"retail_net_inflow"`

	// TurnoverRate is nil when the source does not report it.
	TurnoverRate *float64 `json:"turnover_rate,omitempty"`

	Tier SourceTier `json:"tier"`
}

// InflowRatio returns main net inflow relative to total day amount.
// amount <= 0 yields 0 (fail-closed, not a passing default).
func (f *CapitalFlowSnapshot) InflowRatio(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return f.MainNetInflow / amount
}

// Age returns how old the snapshot is relative to now.
func (f *CapitalFlowSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(f.Timestamp)
}
