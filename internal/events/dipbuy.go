package events

import (
	"github.com/wonny/riptide/internal/contracts"
)

// DipBuyDetector finds pullbacks to support with volume contraction:
// the symbol retreats from its window high toward the window low and
// volume dries up, suggesting sellers are done rather than fleeing.
type DipBuyDetector struct{}

func NewDipBuyDetector() *DipBuyDetector { return &DipBuyDetector{} }

func (d *DipBuyDetector) Type() contracts.EventType { return contracts.EventDipBuy }

func (d *DipBuyDetector) Detect(snap *contracts.MarketSnapshot, rc *RollingContext) *contracts.TradingEvent {
	p := rc.Profile
	if p == nil {
		return nil
	}

	high, ok := rc.WindowHigh()
	if !ok || high <= 0 {
		return nil
	}
	low, _ := rc.WindowLow()
	if low <= 0 || high <= low {
		return nil
	}

	// Pulled back meaningfully from the high but still above support.
	pullback := (high - snap.Price) / high
	if pullback < p.MinPriceChange {
		return nil
	}
	support := (snap.Price - low) / low
	if support < 0 || support > p.MaxPlatformRange {
		return nil
	}

	// Contraction: latest interval volume below the window average.
	avgVol, ok := rc.AvgVolume()
	if !ok || avgVol <= 0 {
		return nil
	}
	latest, ok := rc.LatestVolume()
	if !ok {
		return nil
	}
	contraction := 1.0 - float64(latest)/avgVol
	if contraction <= 0 {
		return nil
	}

	confidence := clampConfidence(0.4 + 0.3*contraction + 0.3*(1.0-support/p.MaxPlatformRange))

	return &contracts.TradingEvent{
		Type:       contracts.EventDipBuy,
		Symbol:     snap.Symbol,
		Timestamp:  snap.Timestamp,
		Confidence: confidence,
		Factors: map[string]float64{
			"pullback":        pullback,
			"above_support":   support,
			"vol_contraction": contraction,
		},
		TraceID: rc.TraceID,
	}
}
