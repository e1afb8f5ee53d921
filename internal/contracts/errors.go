package contracts

import "errors"

// Error taxonomy shared across the engine. Component-local failures are
// absorbed at the component boundary and surfaced as structured log
// events; cycle-level failures abort the cycle.
var (
	// ErrDataUnavailable: a required snapshot or flow estimate could not
	// be obtained from any tier. Handled by exclusion from the current
	// cycle, never by substituting a default value.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrStaleData: data resolved but older than the freshness bound.
	// Handled by demoting to a lower-confidence path.
	ErrStaleData = errors.New("stale data")

	// ErrDetectorFailure: an individual detector failed. Isolated by the
	// router, never propagated.
	ErrDetectorFailure = errors.New("detector failure")

	// ErrPortfolioUnavailable: the allocator could not read portfolio
	// state and emits zero decisions.
	ErrPortfolioUnavailable = errors.New("portfolio state unavailable")

	// ErrCycleAborted: the cycle exceeded its wall-clock budget or its
	// universe input was malformed. Partial results are discarded.
	ErrCycleAborted = errors.New("cycle aborted")

	// ErrOutOfOrder: an update arrived with a timestamp at or before the
	// last applied update for the symbol, or with shrinking cumulative
	// volume/amount. The update is rejected, not reordered.
	ErrOutOfOrder = errors.New("out-of-order update")
)
