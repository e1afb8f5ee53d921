package contracts

import "time"

// Candidate is a symbol that survived all three funnels in one scan
// cycle. The next cycle supersedes it with a fresh candidate; it is
// never mutated in place.
type Candidate struct {
	Symbol  string  `json:"symbol"`
	CycleID string  `json:"cycle_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"` // [0, 1]

	// FlowPercentile is the flow-ratio percentile within the surviving
	// set; it is also the deterministic tie-break.
	FlowPercentile float64 `json:"flow_percentile"`

	// RiskPenalty is computed by the scanner and consumed by the
	// allocator's budget clamp.
	RiskPenalty float64 `json:"risk_penalty"`

	Reasons []string       `json:"reasons"`
	Events  []TradingEvent `json:"events"`

	CreatedAt time.Time `json:"created_at"`
}

// ScanResult is one scan cycle's full output: the ranked candidate list
// plus the per-funnel accounting that makes a zero-candidate cycle
// distinguishable from an aborted one.
type ScanResult struct {
	CycleID   string    `json:"cycle_id"`
	Timestamp time.Time `json:"timestamp"`

	Candidates []Candidate `json:"candidates"`

	// Dropped maps symbol to the funnel reason that removed it.
	Dropped map[string]string `json:"dropped,omitempty"`

	// DataGaps marks dropped symbols that were excluded for missing or
	// inadmissible inputs rather than failing a funnel test. They carry
	// no recomputed score this cycle.
	DataGaps map[string]bool `json:"data_gaps,omitempty"`

	UniverseSize   int `json:"universe_size"`
	AfterLiquidity int `json:"after_liquidity"`
	AfterPattern   int `json:"after_pattern"`
	AfterCapital   int `json:"after_capital"`
}

// Top returns the highest-ranked candidate, or nil for an empty cycle.
func (r *ScanResult) Top() *Candidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}
