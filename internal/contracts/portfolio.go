package contracts

import "time"

// Position is a holding created by the execution layer. The allocator
// only reads positions; it never mutates one.
type Position struct {
	Symbol       string    `json:"symbol"`
	Shares       int64     `json:"shares"`
	CostBasis    float64   `json:"cost_basis"` // per share, yuan
	EntryTime    time.Time `json:"entry_time"`
	CurrentPrice float64   `json:"current_price"`
}

// MarketValue returns the position's current value.
func (p *Position) MarketValue() float64 {
	return float64(p.Shares) * p.CurrentPrice
}

// UnrealizedPL returns the open profit or loss.
func (p *Position) UnrealizedPL() float64 {
	return float64(p.Shares) * (p.CurrentPrice - p.CostBasis)
}

// PortfolioState is the consistent read snapshot the allocator consumes
// at the start of an allocation pass. The execution layer owns and
// mutates the live state.
type PortfolioState struct {
	AsOf       time.Time  `json:"as_of"`
	Cash       float64    `json:"cash"`
	Positions  []Position `json:"positions"`
	RiskBudget float64    `json:"risk_budget"` // active max-drawdown soft limit, fraction of equity
}

// Equity returns cash plus the market value of all positions.
func (s *PortfolioState) Equity() float64 {
	total := s.Cash
	for i := range s.Positions {
		total += s.Positions[i].MarketValue()
	}
	return total
}

// PositionWeight returns a position's fraction of total equity.
func (s *PortfolioState) PositionWeight(symbol string) float64 {
	equity := s.Equity()
	if equity <= 0 {
		return 0
	}
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol {
			return s.Positions[i].MarketValue() / equity
		}
	}
	return 0
}

// Find returns the position for a symbol, if held.
func (s *PortfolioState) Find(symbol string) (*Position, bool) {
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol {
			return &s.Positions[i], true
		}
	}
	return nil, false
}
