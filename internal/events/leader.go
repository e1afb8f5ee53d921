package events

import (
	"github.com/wonny/riptide/internal/contracts"
)

// LeaderDetector flags sector-relative leadership: the symbol outruns
// its sector peers by the profile's price-change margin while main flow
// is positive. Without peers or flow there is no signal.
type LeaderDetector struct{}

func NewLeaderDetector() *LeaderDetector { return &LeaderDetector{} }

func (d *LeaderDetector) Type() contracts.EventType { return contracts.EventLeaderCandidate }

func (d *LeaderDetector) Detect(snap *contracts.MarketSnapshot, rc *RollingContext) *contracts.TradingEvent {
	p := rc.Profile
	if p == nil || len(rc.PeerStrengths) == 0 || rc.Flow == nil {
		return nil
	}
	if rc.Flow.MainNetInflow <= 0 {
		return nil
	}

	strength := snap.PriceStrength()

	var peerSum float64
	outran := 0
	for _, ps := range rc.PeerStrengths {
		peerSum += ps
		if strength > ps {
			outran++
		}
	}
	peerAvg := peerSum / float64(len(rc.PeerStrengths))

	lead := strength - peerAvg
	if lead < p.MinPriceChange {
		return nil
	}

	// Fraction of the sector left behind drives confidence.
	dominance := float64(outran) / float64(len(rc.PeerStrengths))
	if dominance < 0.5 {
		return nil
	}
	confidence := clampConfidence(0.4 + 0.6*dominance)

	return &contracts.TradingEvent{
		Type:       contracts.EventLeaderCandidate,
		Symbol:     snap.Symbol,
		Timestamp:  snap.Timestamp,
		Confidence: confidence,
		Factors: map[string]float64{
			"sector_lead": lead,
			"dominance":   dominance,
			"peer_avg":    peerAvg,
		},
		TraceID: rc.TraceID,
	}
}
