package strategyconfig

import (
	"fmt"
	"math"
)

// Validate rejects configs the engine cannot run safely on. Weight-sum
// and ordering checks here are the reason downstream code can assume
// its invariants without re-checking.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return fmt.Errorf("meta.strategy_id is required")
	}
	if cfg.Meta.CycleBudgetMs <= 0 {
		return fmt.Errorf("meta.cycle_budget_ms must be > 0")
	}
	if cfg.Meta.ScanCadenceSec <= 0 {
		return fmt.Errorf("meta.scan_cadence_sec must be > 0")
	}
	if cfg.Meta.ScanWorkers <= 0 {
		return fmt.Errorf("meta.scan_workers must be > 0")
	}
	if cfg.Meta.RollingWindow <= 0 {
		return fmt.Errorf("meta.rolling_window must be > 0")
	}

	if err := validateThresholds(&cfg.Thresholds); err != nil {
		return err
	}

	if err := validateWeightsSum([]float64{
		cfg.Inference.BaseFlowWeight,
		cfg.Inference.PressureWeight,
		cfg.Inference.StrengthWeight,
	}, 1.0, 1e-6); err != nil {
		return fmt.Errorf("flow_inference weights: %w", err)
	}

	if cfg.Chain.TierTimeoutMs <= 0 {
		return fmt.Errorf("chain.tier_timeout_ms must be > 0")
	}
	if cfg.Chain.BreakerMaxFailures <= 0 {
		return fmt.Errorf("chain.breaker_max_failures must be > 0")
	}

	if err := validateFunnels(&cfg.Funnels); err != nil {
		return err
	}

	return validateAllocation(&cfg.Allocation)
}

func validateThresholds(t *Thresholds) error {
	b := t.Base
	if b.MinMainInflowYuan <= 0 || b.MinInflowRatio <= 0 || b.MinVolumeRatio <= 0 {
		return fmt.Errorf("thresholds.base inflow/ratio/volume values must be > 0")
	}
	if b.ConfidenceFloor < 0 || b.ConfidenceFloor > 1 {
		return fmt.Errorf("thresholds.base.confidence_floor must be in [0,1]")
	}
	if b.FreshnessBoundSec <= 0 {
		return fmt.Errorf("thresholds.base.freshness_bound_sec must be > 0")
	}
	if b.MaxPlatformRange <= 0 {
		return fmt.Errorf("thresholds.base.max_platform_range must be > 0")
	}

	ct := t.CapTiers
	if !(ct.MegaMinYuan > ct.LargeMinYuan && ct.LargeMinYuan > ct.MidMinYuan && ct.MidMinYuan > 0) {
		return fmt.Errorf("thresholds.cap_tiers boundaries must be strictly decreasing and positive")
	}
	for name, s := range map[string]CapTierScale{
		"mega": ct.Mega, "large": ct.Large, "mid": ct.Mid, "small": ct.Small,
	} {
		if s.InflowScale <= 0 || s.RatioScale <= 0 {
			return fmt.Errorf("thresholds.cap_tiers.%s scales must be > 0", name)
		}
		if s.MaxRiskScore <= 0 || s.MaxRiskScore > 1 {
			return fmt.Errorf("thresholds.cap_tiers.%s.max_risk_score must be in (0,1]", name)
		}
	}

	// Smaller caps: smaller absolute inflow, larger relative ratio.
	if !(ct.Mega.InflowScale >= ct.Large.InflowScale &&
		ct.Large.InflowScale >= ct.Mid.InflowScale &&
		ct.Mid.InflowScale >= ct.Small.InflowScale) {
		return fmt.Errorf("thresholds.cap_tiers inflow_scale must not increase toward smaller tiers")
	}
	if !(ct.Mega.RatioScale <= ct.Large.RatioScale &&
		ct.Large.RatioScale <= ct.Mid.RatioScale &&
		ct.Mid.RatioScale <= ct.Small.RatioScale) {
		return fmt.Errorf("thresholds.cap_tiers ratio_scale must not decrease toward smaller tiers")
	}

	seg := t.Segments
	for name, m := range map[string]float64{
		"auction": seg.Auction, "open_drive": seg.OpenDrive,
		"mid_session": seg.MidSession, "late_close": seg.LateClose,
	} {
		if m <= 0 {
			return fmt.Errorf("thresholds.segments.%s must be > 0", name)
		}
	}

	sm := t.Sentiment
	stages := map[string]float64{
		"warm_up": sm.WarmUp, "divergence": sm.Divergence, "main_rally": sm.MainRally,
		"climax": sm.Climax, "decline": sm.Decline, "freeze": sm.Freeze,
	}
	for name, m := range stages {
		if m <= 0 {
			return fmt.Errorf("thresholds.sentiment.%s must be > 0", name)
		}
	}
	// Threshold monotonicity across the cycle: falling stages may never
	// be looser than the main rally.
	if sm.Climax < sm.MainRally || sm.Decline < sm.Climax || sm.Freeze < sm.Decline {
		return fmt.Errorf("thresholds.sentiment falling stages must not loosen: require main_rally <= climax <= decline <= freeze")
	}

	c := t.Calibration
	if c.Step <= 0 || c.MinMultiplier <= 0 || c.MaxMultiplier <= c.MinMultiplier {
		return fmt.Errorf("thresholds.calibration step/bounds invalid")
	}

	return nil
}

func validateFunnels(f *Funnels) error {
	p := f.Pattern
	if p.MinRelPosition < 0 || p.MaxRelPosition > 1 || p.MinRelPosition >= p.MaxRelPosition {
		return fmt.Errorf("funnels.pattern relative position bounds must satisfy 0 <= min < max <= 1")
	}

	if err := validateWeightsSum([]float64{
		f.Scoring.EventWeight, f.Scoring.FlowWeight, f.Scoring.RiskWeight,
	}, 1.0, 1e-6); err != nil {
		return fmt.Errorf("funnels.scoring weights: %w", err)
	}
	return nil
}

func validateAllocation(a *Allocation) error {
	if a.CliffMultiple <= 1.0 {
		return fmt.Errorf("allocation.cliff_multiple must be > 1.0")
	}
	if a.SinglePositionCap <= 0 || a.SinglePositionCap > 1 {
		return fmt.Errorf("allocation.single_position_cap must be in (0,1]")
	}
	if len(a.TierSplits) == 0 {
		return fmt.Errorf("allocation.tier_splits is required")
	}
	for i, split := range a.TierSplits {
		if len(split) != i+1 {
			return fmt.Errorf("allocation.tier_splits[%d] must contain %d weights", i, i+1)
		}
		sum := 0.0
		prev := math.Inf(1)
		for _, w := range split {
			if w <= 0 || w > 1 {
				return fmt.Errorf("allocation.tier_splits[%d] weights must be in (0,1]", i)
			}
			if w > prev {
				return fmt.Errorf("allocation.tier_splits[%d] weights must be non-increasing", i)
			}
			prev = w
			sum += w
		}
		if sum > 1.0+1e-9 {
			return fmt.Errorf("allocation.tier_splits[%d] weights sum %.3f exceeds 1.0", i, sum)
		}
	}
	if a.PKMargin <= 0 {
		return fmt.Errorf("allocation.pk_margin must be > 0")
	}
	if a.MaxDrawdownSoftLimit <= 0 || a.MaxDrawdownSoftLimit > 1 {
		return fmt.Errorf("allocation.max_drawdown_soft_limit must be in (0,1]")
	}
	if a.PerPositionDrawdown <= 0 || a.PerPositionDrawdown > 1 {
		return fmt.Errorf("allocation.per_position_drawdown must be in (0,1]")
	}
	if a.StopLossPct <= 0 || a.TakeProfitPct <= 0 {
		return fmt.Errorf("allocation stop_loss_pct/take_profit_pct must be > 0")
	}
	return nil
}

func validateWeightsSum(weights []float64, target, epsilon float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("no weights given")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("weights sum %.6f, want %.6f", sum, target)
	}
	return nil
}
