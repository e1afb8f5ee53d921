package capitalflow

import (
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/strategyconfig"
)

// Inferrer estimates main-participant flow from level-1 book imbalance
// and price strength when no detailed feed is available. Both inferred
// tiers share this formula:
//
//	estimated = w_base x baseline
//	          + w_pressure x amount x (bid_pressure - 1.0)
//	          + w_strength x amount x price_strength
//
// The weights sum to 1.0 and come from strategy config.
type Inferrer struct {
	weights strategyconfig.Inference
}

// NewInferrer creates an inferrer with the configured weights.
func NewInferrer(weights strategyconfig.Inference) *Inferrer {
	return &Inferrer{weights: weights}
}

// Estimate derives a flow snapshot from a market snapshot. baseline is
// the symbol's historical main-flow average; tier tags which inferred
// rung asked. Returns false when the snapshot carries no book depth to
// infer from (fail-closed: the caller skips the tier, it does not
// assume zero flow).
func (i *Inferrer) Estimate(snap *contracts.MarketSnapshot, baseline float64, tier contracts.SourceTier, at time.Time) (*contracts.CapitalFlowSnapshot, bool) {
	if !snap.HasDepth() {
		return nil, false
	}
	pressure, ok := snap.BidPressure()
	if !ok {
		return nil, false
	}

	strength := snap.PriceStrength()
	w := i.weights

	estimated := w.BaseFlowWeight*baseline +
		w.PressureWeight*snap.Amount*(pressure-1.0) +
		w.StrengthWeight*snap.Amount*strength

	// Split the signed estimate into gross sides so downstream ratio
	// calculations have something to work with.
	buy, sell := 0.0, 0.0
	if estimated >= 0 {
		buy = estimated
	} else {
		sell = -estimated
	}

	return &contracts.CapitalFlowSnapshot{
		Symbol:         snap.Symbol,
		Timestamp:      snap.Timestamp,
		MainNetInflow:  estimated,
		MainBuyAmount:  buy,
		MainSellAmount: sell,
		// Retail flow is the residual of the day's amount against the
		// inferred main flow; crude, but tier-tagged as inferred.
		RetailNetInflow: -estimated,
		Tier:            tier,
	}, true
}
