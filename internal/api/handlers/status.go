package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/scheduler"
	"github.com/wonny/riptide/pkg/logger"
)

// EngineStatus is the engine surface the status endpoints need.
type EngineStatus interface {
	Stage() contracts.SentimentStage
	SetSentimentStage(stage contracts.SentimentStage) bool
	BaseMultiplier() float64
	LastRecord() *contracts.CycleRecord
}

// JobStats reports scheduler job statistics.
type JobStats interface {
	Stats() map[string]scheduler.JobStats
}

// StatusHandler serves live engine state and accepts the operator's
// sentiment-stage changes.
type StatusHandler struct {
	engine EngineStatus
	jobs   JobStats
	clock  *market.Clock
	log    *logger.Logger
}

func NewStatusHandler(engine EngineStatus, jobs JobStats, clock *market.Clock, log *logger.Logger) *StatusHandler {
	return &StatusHandler{engine: engine, jobs: jobs, clock: clock, log: log}
}

// Get returns engine status.
// GET /api/v1/status
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	payload := map[string]interface{}{
		"stage":           string(h.engine.Stage()),
		"base_multiplier": h.engine.BaseMultiplier(),
		"segment":         string(h.clock.SegmentAt(now)),
		"in_session":      h.clock.InSession(now),
	}
	if rec := h.engine.LastRecord(); rec != nil {
		payload["last_cycle"] = rec
		payload["last_cycle_ok"] = rec.Succeeded()
	}
	if h.jobs != nil {
		payload["jobs"] = h.jobs.Stats()
	}
	respondJSON(w, http.StatusOK, payload)
}

// SetStage updates the sentiment stage the next cycle runs under.
// POST /api/v1/stage {"stage": "MAIN_RALLY"}
func (h *StatusHandler) SetStage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	stage := contracts.SentimentStage(body.Stage)
	if !h.engine.SetSentimentStage(stage) {
		respondError(w, http.StatusBadRequest, "unknown sentiment stage")
		return
	}

	h.log.WithField("stage", body.Stage).Info("Sentiment stage changed via API")
	respondJSON(w, http.StatusOK, map[string]string{"stage": body.Stage})
}
