package strategyconfig

import "time"

// Config is the full strategy configuration. Every tunable the engine
// uses lives here: no component embeds a literal cutoff or weight.
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	Inference  Inference  `yaml:"flow_inference" json:"flow_inference"`
	Chain      Chain      `yaml:"chain" json:"chain"`
	Funnels    Funnels    `yaml:"funnels" json:"funnels"`
	Allocation Allocation `yaml:"allocation" json:"allocation"`
}

// Meta identifies the strategy and its cycle cadence.
type Meta struct {
	StrategyID     string `yaml:"strategy_id" json:"strategy_id"`
	Version        string `yaml:"version" json:"version"`
	Timezone       string `yaml:"timezone" json:"timezone"`
	ScanCadenceSec int    `yaml:"scan_cadence_sec" json:"scan_cadence_sec"`
	CycleBudgetMs  int    `yaml:"cycle_budget_ms" json:"cycle_budget_ms"`
	ScanWorkers    int    `yaml:"scan_workers" json:"scan_workers"`
	RollingWindow  int    `yaml:"rolling_window" json:"rolling_window"`
}

// CycleBudget returns the wall-clock budget for one scan cycle.
func (m Meta) CycleBudget() time.Duration {
	return time.Duration(m.CycleBudgetMs) * time.Millisecond
}

// Thresholds drives the threshold engine.
type Thresholds struct {
	Base        BaseThresholds     `yaml:"base" json:"base"`
	CapTiers    CapTiers           `yaml:"cap_tiers" json:"cap_tiers"`
	Segments    SegmentMultipliers `yaml:"segments" json:"segments"`
	Sentiment   SentimentMults     `yaml:"sentiment" json:"sentiment"`
	Calibration Calibration        `yaml:"calibration" json:"calibration"`
}

// BaseThresholds is the starting threshold set before any multiplier.
type BaseThresholds struct {
	MinMainInflowYuan  float64 `yaml:"min_main_inflow_yuan" json:"min_main_inflow_yuan"`
	MinInflowRatio     float64 `yaml:"min_inflow_ratio" json:"min_inflow_ratio"`
	MinPriceChange     float64 `yaml:"min_price_change" json:"min_price_change"`
	MinVolumeRatio     float64 `yaml:"min_volume_ratio" json:"min_volume_ratio"`
	MaxPlatformRange   float64 `yaml:"max_platform_range" json:"max_platform_range"`
	LiquidityFloorYuan float64 `yaml:"liquidity_floor_yuan" json:"liquidity_floor_yuan"`
	ConfidenceFloor    float64 `yaml:"confidence_floor" json:"confidence_floor"`
	FreshnessBoundSec  int     `yaml:"freshness_bound_sec" json:"freshness_bound_sec"`
}

// CapTiers holds per-capitalization-tier scaling. Smaller caps scale the
// absolute inflow down and the relative ratio up.
type CapTiers struct {
	MegaMinYuan  float64 `yaml:"mega_min_yuan" json:"mega_min_yuan"`
	LargeMinYuan float64 `yaml:"large_min_yuan" json:"large_min_yuan"`
	MidMinYuan   float64 `yaml:"mid_min_yuan" json:"mid_min_yuan"`

	Mega  CapTierScale `yaml:"mega" json:"mega"`
	Large CapTierScale `yaml:"large" json:"large"`
	Mid   CapTierScale `yaml:"mid" json:"mid"`
	Small CapTierScale `yaml:"small" json:"small"`
}

// CapTierScale scales one capitalization tier.
type CapTierScale struct {
	InflowScale  float64 `yaml:"inflow_scale" json:"inflow_scale"`
	RatioScale   float64 `yaml:"ratio_scale" json:"ratio_scale"`
	MaxRiskScore float64 `yaml:"max_risk_score" json:"max_risk_score"`
}

// SegmentMultipliers scales thresholds by time of day: loose near the
// open, tight near the close.
type SegmentMultipliers struct {
	Auction    float64 `yaml:"auction" json:"auction"`
	OpenDrive  float64 `yaml:"open_drive" json:"open_drive"`
	MidSession float64 `yaml:"mid_session" json:"mid_session"`
	LateClose  float64 `yaml:"late_close" json:"late_close"`

	// FreshnessScale widens the freshness bound late in the session,
	// when feeds slow down.
	FreshnessScale map[string]float64 `yaml:"freshness_scale" json:"freshness_scale"`
}

// SentimentMults scales thresholds by sentiment-cycle stage: looser in
// rising stages, stricter in falling stages.
type SentimentMults struct {
	WarmUp     float64 `yaml:"warm_up" json:"warm_up"`
	Divergence float64 `yaml:"divergence" json:"divergence"`
	MainRally  float64 `yaml:"main_rally" json:"main_rally"`
	Climax     float64 `yaml:"climax" json:"climax"`
	Decline    float64 `yaml:"decline" json:"decline"`
	Freeze     float64 `yaml:"freeze" json:"freeze"`
}

// Calibration bounds the nightly recalibration nudges.
type Calibration struct {
	Step                 float64 `yaml:"step" json:"step"`
	MinMultiplier        float64 `yaml:"min_multiplier" json:"min_multiplier"`
	MaxMultiplier        float64 `yaml:"max_multiplier" json:"max_multiplier"`
	TargetHitRate        float64 `yaml:"target_hit_rate" json:"target_hit_rate"`
	MaxFalsePositiveRate float64 `yaml:"max_false_positive_rate" json:"max_false_positive_rate"`
}

// Inference holds the flow-inference formula weights. The three weights
// sum to 1.0; the stated defaults are empirically tuned, not normative.
type Inference struct {
	BaseFlowWeight float64 `yaml:"base_flow_weight" json:"base_flow_weight"`
	PressureWeight float64 `yaml:"pressure_weight" json:"pressure_weight"`
	StrengthWeight float64 `yaml:"strength_weight" json:"strength_weight"`
}

// Chain configures the provider degradation chain.
type Chain struct {
	TierTimeoutMs      int `yaml:"tier_timeout_ms" json:"tier_timeout_ms"`
	BreakerMaxFailures int `yaml:"breaker_max_failures" json:"breaker_max_failures"`
	BreakerOpenSec     int `yaml:"breaker_open_sec" json:"breaker_open_sec"`
}

// TierTimeout returns the per-tier lookup timeout.
func (c Chain) TierTimeout() time.Duration {
	return time.Duration(c.TierTimeoutMs) * time.Millisecond
}

// BreakerOpenTimeout returns how long a tripped tier stays open.
func (c Chain) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenSec) * time.Second
}

// Funnels configures the three-funnel scanner.
type Funnels struct {
	Pattern PatternFunnel  `yaml:"pattern" json:"pattern"`
	Scoring ScoringWeights `yaml:"scoring" json:"scoring"`
}

// PatternFunnel bounds the acceptable relative price position: rejects
// both "too extended" and "too depressed" symbols.
type PatternFunnel struct {
	MinRelPosition float64 `yaml:"min_rel_position" json:"min_rel_position"`
	MaxRelPosition float64 `yaml:"max_rel_position" json:"max_rel_position"`
}

// ScoringWeights combines event confidence, flow percentile, and the
// risk penalty into the composite opportunity score. Weights sum to 1.0.
type ScoringWeights struct {
	EventWeight float64 `yaml:"event_weight" json:"event_weight"`
	FlowWeight  float64 `yaml:"flow_weight" json:"flow_weight"`
	RiskWeight  float64 `yaml:"risk_weight" json:"risk_weight"`
}

// Allocation configures the capital allocator.
type Allocation struct {
	// CliffMultiple triggers concentration when top/second score exceeds
	// it. Empirically tuned; calibrate against history.
	CliffMultiple float64 `yaml:"cliff_multiple" json:"cliff_multiple"`

	SinglePositionCap float64 `yaml:"single_position_cap" json:"single_position_cap"`

	// TierSplits[n-1] is the weight split over n spread candidates.
	TierSplits [][]float64 `yaml:"tier_splits" json:"tier_splits"`

	// PKMargin is how much an unheld candidate must outscore a holding's
	// recomputed score before the holding is reduced.
	PKMargin float64 `yaml:"pk_margin" json:"pk_margin"`

	MaxDrawdownSoftLimit float64 `yaml:"max_drawdown_soft_limit" json:"max_drawdown_soft_limit"`
	PerPositionDrawdown  float64 `yaml:"per_position_drawdown" json:"per_position_drawdown"`

	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
}

// DecisionSnapshot ties a run's outputs to the exact config that
// produced them, for audit and replay.
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}
