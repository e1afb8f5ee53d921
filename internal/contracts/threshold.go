package contracts

import "time"

// MarketCapTier buckets symbols into four capitalization tiers. Smaller
// caps require a smaller absolute inflow but a larger relative ratio.
type MarketCapTier string

const (
	CapTierMega  MarketCapTier = "MEGA"  // >= 100B yuan
	CapTierLarge MarketCapTier = "LARGE" // >= 30B
	CapTierMid   MarketCapTier = "MID"   // >= 10B
	CapTierSmall MarketCapTier = "SMALL" // everything else, and the
	// conservative fallback when market cap is unknown
)

// SentimentStage is the coarse, manually-staged market mood cycle. It is
// set once per cycle by the orchestrator and threaded through explicitly,
// never read from module state.
type SentimentStage string

const (
	StageWarmUp     SentimentStage = "WARM_UP"
	StageDivergence SentimentStage = "DIVERGENCE"
	StageMainRally  SentimentStage = "MAIN_RALLY"
	StageClimax     SentimentStage = "CLIMAX"
	StageDecline    SentimentStage = "DECLINE"
	StageFreeze     SentimentStage = "FREEZE"
)

// Rising reports whether the stage belongs to the rising half of the
// cycle, where thresholds loosen.
func (s SentimentStage) Rising() bool {
	switch s {
	case StageWarmUp, StageDivergence, StageMainRally:
		return true
	}
	return false
}

// IsValidSentimentStage checks membership in the six-stage cycle.
func IsValidSentimentStage(s SentimentStage) bool {
	switch s {
	case StageWarmUp, StageDivergence, StageMainRally, StageClimax, StageDecline, StageFreeze:
		return true
	}
	return false
}

// SessionSegment is the time-of-day bucket used by the threshold engine.
type SessionSegment string

const (
	SegmentAuction    SessionSegment = "AUCTION"     // 09:15-09:25 call auction
	SegmentOpenDrive  SessionSegment = "OPEN_DRIVE"  // 09:30-10:00
	SegmentMidSession SessionSegment = "MID_SESSION" // 10:00-11:30, 13:00-14:30
	SegmentLateClose  SessionSegment = "LATE_CLOSE"  // 14:30-15:00
	SegmentClosed     SessionSegment = "CLOSED"
)

// ThresholdProfile is a bundle of computed cutoffs plus the inputs that
// produced them. Profiles are computed once per symbol per cycle and are
// immutable for the remainder of that cycle. No component above the
// threshold engine may hard-code a cutoff.
type ThresholdProfile struct {
	Symbol     string    `json:"symbol"`
	ComputedAt time.Time `json:"computed_at"`

	// Inputs
	CapTier      MarketCapTier  `json:"cap_tier"`
	Segment      SessionSegment `json:"segment"`
	Stage        SentimentStage `json:"stage"`
	AdjustFactor float64        `json:"adjust_factor"` // product of the three multipliers
	DegradedCap  bool           `json:"degraded_cap"`  // market cap was missing, SMALL assumed

	// Cutoffs
	MinMainInflow    float64 `json:"min_main_inflow"`    // yuan
	MinInflowRatio   float64 `json:"min_inflow_ratio"`   // inflow / day amount
	MinPriceChange   float64 `json:"min_price_change"`   // fraction over reference
	MinVolumeRatio   float64 `json:"min_volume_ratio"`   // multiple of baseline volume
	MaxRiskScore     float64 `json:"max_risk_score"`     // [0,1], cap-tier driven
	MaxPlatformRange float64 `json:"max_platform_range"` // consolidation range ceiling, fraction
	LiquidityFloor   float64 `json:"liquidity_floor"`    // min day amount, yuan
	ConfidenceFloor  float64 `json:"confidence_floor"`   // min event confidence

	// FreshnessBound is how old flow data may be before the chain demotes
	// to the next tier.
	FreshnessBound time.Duration `json:"freshness_bound"`
}
