package contracts

import "time"

// EventType is the closed set of trading events the detectors emit.
type EventType string

const (
	// EventAuctionTransition is a pre-open weak-to-strong reversal in the
	// call auction.
	EventAuctionTransition EventType = "AUCTION_TRANSITION"

	// EventBreakout is a platform/consolidation breakout with volume
	// confirmation.
	EventBreakout EventType = "BREAKOUT"

	// EventLeaderCandidate is sector-relative leadership.
	EventLeaderCandidate EventType = "LEADER_CANDIDATE"

	// EventDipBuy is a pullback to support with volume contraction.
	EventDipBuy EventType = "DIP_BUY_CANDIDATE"
)

// AllEventTypes returns every member of the closed set.
func AllEventTypes() []EventType {
	return []EventType{
		EventAuctionTransition,
		EventBreakout,
		EventLeaderCandidate,
		EventDipBuy,
	}
}

// IsValidEventType checks membership in the closed set.
func IsValidEventType(t EventType) bool {
	for _, known := range AllEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// TradingEvent is the unified detector output. It is created by exactly
// one detector invocation and immutable afterwards; the scanner consumes
// it and the store archives it.
type TradingEvent struct {
	Type       EventType `json:"type"`
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"` // [0, 1]

	// Factors carries event-specific numeric evidence, e.g. the volume
	// multiple behind a breakout.
	Factors map[string]float64 `json:"factors,omitempty"`

	// TraceID links the event to the scan cycle that produced it.
	TraceID string `json:"trace_id"`
}

// Clone returns a deep copy. Consumers that need to annotate an event
// work on a clone; the original is never mutated.
func (e *TradingEvent) Clone() *TradingEvent {
	out := *e
	if e.Factors != nil {
		out.Factors = make(map[string]float64, len(e.Factors))
		for k, v := range e.Factors {
			out.Factors[k] = v
		}
	}
	return &out
}
