package capitalflow

import (
	"context"
	"time"

	"github.com/wonny/riptide/internal/contracts"
)

// Provider resolves a capital-flow snapshot for exactly one tier. Tier
// adapters are registered on the chain in degradation order; no other
// component may implement its own fallback for flow data.
type Provider interface {
	// Tier identifies which rung of the chain this provider serves.
	Tier() contracts.SourceTier

	// Fetch resolves the most recent flow snapshot for the symbol. It
	// must honor ctx cancellation; the chain wraps every call in a
	// per-tier timeout.
	Fetch(ctx context.Context, symbol string, ts time.Time) (*contracts.CapitalFlowSnapshot, error)
}

// FreshnessSource supplies the time-of-day freshness bound. The bound is
// threshold-engine context, not a literal owned by the chain.
type FreshnessSource interface {
	FreshnessBoundAt(ts time.Time) time.Duration
}
