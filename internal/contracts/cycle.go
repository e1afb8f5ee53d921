package contracts

import "time"

// CycleStatus distinguishes how a scan cycle ended. A completed cycle
// with zero candidates is a valid, reportable outcome; an aborted cycle
// surfaces no results at all.
type CycleStatus string

const (
	CycleCompleted CycleStatus = "COMPLETED"
	CycleAborted   CycleStatus = "ABORTED"
)

// CycleRecord is the persisted summary of one scan/allocation cycle,
// keyed by (trade_date, cycle_id) so a replay can reproduce the exact
// inputs the allocator saw.
type CycleRecord struct {
	CycleID   string        `json:"cycle_id"`
	TradeDate time.Time     `json:"trade_date"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Status    CycleStatus   `json:"status"`

	Stage      SentimentStage `json:"stage"`
	ConfigHash string         `json:"config_hash"`

	UniverseSize   int    `json:"universe_size"`
	CandidateCount int    `json:"candidate_count"`
	DecisionCount  int    `json:"decision_count"`
	Error          string `json:"error,omitempty"`
}

// Succeeded reports whether the cycle ran to completion.
func (r *CycleRecord) Succeeded() bool {
	return r.Status == CycleCompleted
}
