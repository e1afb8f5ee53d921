package threshold

import (
	"sync"
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

// Engine computes context-adjusted threshold profiles. Nothing above it
// in the pipeline may hard-code a cutoff: every "is this big enough"
// comparison routes through a ThresholdProfile.
//
// final threshold = base x cap_mult x time_mult x sentiment_mult
type Engine struct {
	cfg   strategyconfig.Thresholds
	clock *market.Clock
	log   *logger.Logger

	// baseMult is the calibration-adjusted global multiplier. Guarded by
	// mu; Recalibrate runs out-of-band, never mid-session.
	mu       sync.RWMutex
	baseMult float64
}

// NewEngine creates a threshold engine.
func NewEngine(cfg strategyconfig.Thresholds, clock *market.Clock, log *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		log:      log,
		baseMult: 1.0,
	}
}

// Compute builds the profile for one symbol at one instant. Missing
// market cap (marketCapYuan <= 0) degrades to the SMALL tier, the
// strictest ratio requirement, and is logged; it is never a hard error.
func (e *Engine) Compute(symbol string, ts time.Time, marketCapYuan float64, stage contracts.SentimentStage) *contracts.ThresholdProfile {
	capTier, degraded := e.capTierFor(marketCapYuan)
	if degraded {
		e.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"tier":   capTier,
		}).Warn("Market cap unavailable, degrading to smallest-cap tier")
	}

	segment := e.clock.SegmentAt(ts)
	scale := e.capScale(capTier)
	timeMult := e.segmentMult(segment)
	sentMult := e.sentimentMult(stage)

	e.mu.RLock()
	baseMult := e.baseMult
	e.mu.RUnlock()

	adjust := baseMult * timeMult * sentMult
	base := e.cfg.Base

	floor := base.ConfidenceFloor * adjust
	if floor > 0.95 {
		floor = 0.95
	}

	return &contracts.ThresholdProfile{
		Symbol:       symbol,
		ComputedAt:   ts,
		CapTier:      capTier,
		Segment:      segment,
		Stage:        stage,
		AdjustFactor: adjust,
		DegradedCap:  degraded,

		MinMainInflow:  base.MinMainInflowYuan * scale.InflowScale * adjust,
		MinInflowRatio: base.MinInflowRatio * scale.RatioScale * adjust,
		MinPriceChange: base.MinPriceChange * adjust,
		MinVolumeRatio: base.MinVolumeRatio * adjust,
		LiquidityFloor: base.LiquidityFloorYuan * scale.InflowScale * adjust,

		// Ceilings are capitalization-driven only. Scaling them with
		// sentiment would loosen one threshold while tightening the
		// rest, breaking profile-wide monotonicity.
		MaxRiskScore:     scale.MaxRiskScore,
		MaxPlatformRange: base.MaxPlatformRange,

		ConfidenceFloor: floor,
		FreshnessBound:  e.freshnessBound(segment),
	}
}

// FreshnessBoundAt exposes the time-of-day freshness bound to the
// provider chain without requiring a full profile.
func (e *Engine) FreshnessBoundAt(ts time.Time) time.Duration {
	return e.freshnessBound(e.clock.SegmentAt(ts))
}

func (e *Engine) capTierFor(marketCapYuan float64) (contracts.MarketCapTier, bool) {
	ct := e.cfg.CapTiers
	switch {
	case marketCapYuan <= 0:
		return contracts.CapTierSmall, true
	case marketCapYuan >= ct.MegaMinYuan:
		return contracts.CapTierMega, false
	case marketCapYuan >= ct.LargeMinYuan:
		return contracts.CapTierLarge, false
	case marketCapYuan >= ct.MidMinYuan:
		return contracts.CapTierMid, false
	default:
		return contracts.CapTierSmall, false
	}
}

func (e *Engine) capScale(tier contracts.MarketCapTier) strategyconfig.CapTierScale {
	switch tier {
	case contracts.CapTierMega:
		return e.cfg.CapTiers.Mega
	case contracts.CapTierLarge:
		return e.cfg.CapTiers.Large
	case contracts.CapTierMid:
		return e.cfg.CapTiers.Mid
	default:
		return e.cfg.CapTiers.Small
	}
}

func (e *Engine) segmentMult(seg contracts.SessionSegment) float64 {
	s := e.cfg.Segments
	switch seg {
	case contracts.SegmentAuction:
		return s.Auction
	case contracts.SegmentOpenDrive:
		return s.OpenDrive
	case contracts.SegmentLateClose:
		return s.LateClose
	default:
		return s.MidSession
	}
}

func (e *Engine) sentimentMult(stage contracts.SentimentStage) float64 {
	s := e.cfg.Sentiment
	switch stage {
	case contracts.StageWarmUp:
		return s.WarmUp
	case contracts.StageDivergence:
		return s.Divergence
	case contracts.StageMainRally:
		return s.MainRally
	case contracts.StageClimax:
		return s.Climax
	case contracts.StageDecline:
		return s.Decline
	case contracts.StageFreeze:
		return s.Freeze
	default:
		// Unknown stage: treat as freeze, the strictest setting.
		return s.Freeze
	}
}

func (e *Engine) freshnessBound(seg contracts.SessionSegment) time.Duration {
	bound := time.Duration(e.cfg.Base.FreshnessBoundSec) * time.Second
	if scale, ok := e.cfg.Segments.FreshnessScale[string(seg)]; ok && scale > 0 {
		bound = time.Duration(float64(bound) * scale)
	}
	return bound
}
