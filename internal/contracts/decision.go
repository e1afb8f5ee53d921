package contracts

import "time"

// Action is what the allocator wants done with a symbol.
type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionHold   Action = "HOLD"
	ActionReduce Action = "REDUCE"
)

// AllocationDecision is one symbol's outcome of an allocation pass. The
// execution layer consumes it and discards it; decisions are not retried.
type AllocationDecision struct {
	Symbol  string `json:"symbol"`
	CycleID string `json:"cycle_id"`
	Action  Action `json:"action"`

	// TargetWeight is the desired fraction of total equity.
	TargetWeight float64 `json:"target_weight"`

	Rationale string `json:"rationale"`

	// Optional protective levels.
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`

	// RiskFlag marks a same-session holding whose score collapsed. It
	// cannot be sold today; the flag carries the warning into the next
	// session.
	RiskFlag bool `json:"risk_flag,omitempty"`

	// ConfigHash is the strategy config hash that produced the decision.
	ConfigHash string `json:"config_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
