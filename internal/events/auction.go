package events

import (
	"github.com/wonny/riptide/internal/contracts"
)

// AuctionDetector flags a weak-to-strong reversal during the pre-open
// call auction: the indicative price opens below the previous close and
// climbs above it before the match. Only fires in the auction segment.
type AuctionDetector struct{}

func NewAuctionDetector() *AuctionDetector { return &AuctionDetector{} }

func (d *AuctionDetector) Type() contracts.EventType { return contracts.EventAuctionTransition }

func (d *AuctionDetector) Detect(snap *contracts.MarketSnapshot, rc *RollingContext) *contracts.TradingEvent {
	p := rc.Profile
	if p == nil || p.Segment != contracts.SegmentAuction {
		return nil
	}
	if len(rc.AuctionPrices) < 2 || snap.PrevClose <= 0 {
		return nil
	}

	first := rc.AuctionPrices[0]
	last := rc.AuctionPrices[len(rc.AuctionPrices)-1]

	// Started weak, finished strong.
	if first >= snap.PrevClose || last <= snap.PrevClose {
		return nil
	}

	recovery := (last - first) / snap.PrevClose
	if recovery < p.MinPriceChange {
		return nil
	}

	above := (last - snap.PrevClose) / snap.PrevClose
	confidence := clampConfidence(0.4 + 20.0*above)

	return &contracts.TradingEvent{
		Type:       contracts.EventAuctionTransition,
		Symbol:     snap.Symbol,
		Timestamp:  snap.Timestamp,
		Confidence: confidence,
		Factors: map[string]float64{
			"auction_recovery": recovery,
			"above_prev_close": above,
		},
		TraceID: rc.TraceID,
	}
}
