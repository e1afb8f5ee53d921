package contracts

import (
	"fmt"
	"time"
)

// MarketSnapshot is the state of one symbol at one instant.
// Volume and Amount are cumulative for the trading day and must be
// monotonically non-decreasing; timestamps are strictly increasing per
// symbol per source. The ordering guard in marketstate enforces both.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`

	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`

	// Bar is nil when no intraday bar is available for the symbol yet.
	Bar *OHLC `json:"bar,omitempty"`

	Volume int64   `json:"volume"` // cumulative day volume, shares
	Amount float64 `json:"amount"` // cumulative day amount, yuan

	// Up to 5 levels each; nil when the feed carries no depth.
	Bids []QuoteLevel `json:"bids,omitempty"`
	Asks []QuoteLevel `json:"asks,omitempty"`
}

// OHLC is an intraday bar.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// QuoteLevel is one level of the order book.
type QuoteLevel struct {
	Price float64 `json:"price"`
	Size  int64   `json:"size"`
}

// PriceStrength returns the signed move from the previous close.
func (s *MarketSnapshot) PriceStrength() float64 {
	if s.PrevClose <= 0 {
		return 0
	}
	return (s.Price - s.PrevClose) / s.PrevClose
}

// BidPressure returns the level-1..5 book imbalance in [-1, 1].
// The second return is false when the snapshot carries no depth.
func (s *MarketSnapshot) BidPressure() (float64, bool) {
	var bidSum, askSum int64
	for _, l := range s.Bids {
		bidSum += l.Size
	}
	for _, l := range s.Asks {
		askSum += l.Size
	}
	total := bidSum + askSum
	if total == 0 {
		return 0, false
	}
	return float64(bidSum-askSum) / float64(total), true
}

// HasDepth reports whether the snapshot carries any book levels.
func (s *MarketSnapshot) HasDepth() bool {
	return len(s.Bids) > 0 || len(s.Asks) > 0
}

// Validate checks structural invariants a snapshot must satisfy before it
// enters the state book.
func (s *MarketSnapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("snapshot missing symbol")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("snapshot %s missing timestamp", s.Symbol)
	}
	if s.Price <= 0 {
		return fmt.Errorf("snapshot %s has non-positive price %.4f", s.Symbol, s.Price)
	}
	if s.Volume < 0 || s.Amount < 0 {
		return fmt.Errorf("snapshot %s has negative cumulative volume/amount", s.Symbol)
	}
	if len(s.Bids) > 5 || len(s.Asks) > 5 {
		return fmt.Errorf("snapshot %s carries more than 5 book levels", s.Symbol)
	}
	return nil
}
