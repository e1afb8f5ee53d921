package events

import (
	"github.com/wonny/riptide/internal/contracts"
)

// BreakoutDetector finds platform breakouts with volume confirmation.
// Three conditions, three profile cutoffs:
//
//  1. trailing range below MaxPlatformRange (the platform held),
//  2. price clears the platform high by at least MinPriceChange,
//  3. latest volume exceeds the platform average by MinVolumeRatio.
type BreakoutDetector struct{}

func NewBreakoutDetector() *BreakoutDetector { return &BreakoutDetector{} }

func (d *BreakoutDetector) Type() contracts.EventType { return contracts.EventBreakout }

func (d *BreakoutDetector) Detect(snap *contracts.MarketSnapshot, rc *RollingContext) *contracts.TradingEvent {
	p := rc.Profile
	if p == nil {
		return nil
	}

	rangeFrac, ok := rc.RangeFraction()
	if !ok || rangeFrac > p.MaxPlatformRange {
		return nil
	}

	platformHigh, _ := rc.WindowHigh()
	if platformHigh <= 0 {
		return nil
	}
	clearance := (snap.Price - platformHigh) / platformHigh
	if clearance < p.MinPriceChange {
		return nil
	}

	avgVol, ok := rc.AvgVolume()
	if !ok || avgVol <= 0 {
		return nil
	}
	latest, ok := rc.LatestVolume()
	if !ok {
		return nil
	}
	volMultiple := float64(latest) / avgVol
	if volMultiple < p.MinVolumeRatio {
		return nil
	}

	// Tighter platform and louder volume both raise confidence.
	tightness := 1.0 - rangeFrac/p.MaxPlatformRange
	volScore := (volMultiple - p.MinVolumeRatio) / p.MinVolumeRatio
	if volScore > 1 {
		volScore = 1
	}
	confidence := clampConfidence(0.5 + 0.25*tightness + 0.25*volScore)

	return &contracts.TradingEvent{
		Type:       contracts.EventBreakout,
		Symbol:     snap.Symbol,
		Timestamp:  snap.Timestamp,
		Confidence: confidence,
		Factors: map[string]float64{
			"platform_range":  rangeFrac,
			"clearance":       clearance,
			"volume_multiple": volMultiple,
		},
		TraceID: rc.TraceID,
	}
}
