package events

import (
	"github.com/wonny/riptide/internal/contracts"
)

// Detector turns one snapshot plus its rolling context into at most one
// trading event. Detectors are pure: no state survives between calls,
// and a detector never reaches into the allocator, the execution layer,
// or another detector.
type Detector interface {
	// Type identifies the single event type this detector emits.
	Type() contracts.EventType

	// Detect returns nil when the setup is absent. It must not mutate
	// the snapshot or the context.
	Detect(snap *contracts.MarketSnapshot, rc *RollingContext) *contracts.TradingEvent
}

// RollingContext is everything a detector may look at beyond the
// current snapshot. The router assembles it per symbol per cycle from
// the state book; detectors treat it as read-only.
type RollingContext struct {
	// Profile carries every cutoff the detectors compare against.
	Profile *contracts.ThresholdProfile

	// Prices is the trailing window, oldest first, up to but not
	// including the current snapshot: a breakout tick must be able to
	// clear its own platform. Volumes are per-interval, not cumulative,
	// and do include the current interval.
	Prices  []float64
	Volumes []int64

	// Flow is the most recent committed flow snapshot, nil when the
	// chain had nothing fresh for this symbol.
	Flow *contracts.CapitalFlowSnapshot

	// PeerStrengths holds the price strength of each sector peer at the
	// same instant, the symbol itself excluded. Empty when the refdata
	// layer has no sector for the symbol.
	PeerStrengths []float64

	// AuctionPrices is the indicative-price sequence observed during the
	// call auction, oldest first. Empty outside the auction segment.
	AuctionPrices []float64

	// TraceID links emitted events to the scan cycle.
	TraceID string
}

// WindowHigh returns the highest trailing price, or 0 with ok=false
// when the window is empty.
func (rc *RollingContext) WindowHigh() (float64, bool) {
	if len(rc.Prices) == 0 {
		return 0, false
	}
	high := rc.Prices[0]
	for _, p := range rc.Prices[1:] {
		if p > high {
			high = p
		}
	}
	return high, true
}

// WindowLow returns the lowest trailing price, or 0 with ok=false when
// the window is empty.
func (rc *RollingContext) WindowLow() (float64, bool) {
	if len(rc.Prices) == 0 {
		return 0, false
	}
	low := rc.Prices[0]
	for _, p := range rc.Prices[1:] {
		if p < low {
			low = p
		}
	}
	return low, true
}

// RangeFraction returns (high-low)/low over the trailing window, the
// platform-tightness measure.
func (rc *RollingContext) RangeFraction() (float64, bool) {
	high, ok := rc.WindowHigh()
	if !ok {
		return 0, false
	}
	low, _ := rc.WindowLow()
	if low <= 0 {
		return 0, false
	}
	return (high - low) / low, true
}

// AvgVolume returns the mean per-interval volume over the window.
func (rc *RollingContext) AvgVolume() (float64, bool) {
	if len(rc.Volumes) == 0 {
		return 0, false
	}
	var sum int64
	for _, v := range rc.Volumes {
		sum += v
	}
	return float64(sum) / float64(len(rc.Volumes)), true
}

// LatestVolume returns the most recent per-interval volume.
func (rc *RollingContext) LatestVolume() (int64, bool) {
	if len(rc.Volumes) == 0 {
		return 0, false
	}
	return rc.Volumes[len(rc.Volumes)-1], true
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
