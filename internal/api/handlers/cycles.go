package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/logger"
)

// Archive is the read surface of the cycle store.
type Archive interface {
	ListCycles(ctx context.Context, tradeDate time.Time) ([]contracts.CycleRecord, error)
	LoadScanResult(ctx context.Context, tradeDate time.Time, cycleID string) (*contracts.ScanResult, error)
	LoadDecisions(ctx context.Context, tradeDate time.Time, cycleID string) ([]contracts.AllocationDecision, error)
	LoadEvents(ctx context.Context, tradeDate time.Time, cycleID string) ([]*contracts.TradingEvent, error)
}

// CycleHandler serves archived cycle data.
type CycleHandler struct {
	archive Archive
	log     *logger.Logger
}

func NewCycleHandler(archive Archive, log *logger.Logger) *CycleHandler {
	return &CycleHandler{archive: archive, log: log}
}

// List returns a trade date's cycle summaries.
// GET /api/v1/cycles?date=2026-03-02 (default: today)
func (h *CycleHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	cycles, err := h.archive.ListCycles(r.Context(), date)
	if err != nil {
		h.log.WithError(err).Error("Cycle listing failed")
		respondError(w, http.StatusInternalServerError, "cycle listing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trade_date": date.Format("2006-01-02"),
		"cycles":     cycles,
	})
}

// Candidates returns one cycle's full scan result.
// GET /api/v1/cycles/{date}/{id}/candidates
func (h *CycleHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	date, id, ok := cycleKey(w, r)
	if !ok {
		return
	}

	res, err := h.archive.LoadScanResult(r.Context(), date, id)
	if errors.Is(err, contracts.ErrDataUnavailable) {
		respondError(w, http.StatusNotFound, "cycle not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Scan result load failed")
		respondError(w, http.StatusInternalServerError, "scan result load failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Decisions returns one cycle's allocation decisions.
// GET /api/v1/cycles/{date}/{id}/decisions
func (h *CycleHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	date, id, ok := cycleKey(w, r)
	if !ok {
		return
	}

	decisions, err := h.archive.LoadDecisions(r.Context(), date, id)
	if errors.Is(err, contracts.ErrDataUnavailable) {
		respondError(w, http.StatusNotFound, "cycle not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Decision load failed")
		respondError(w, http.StatusInternalServerError, "decision load failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id":  id,
		"decisions": decisions,
	})
}

// Events returns one cycle's detected events.
// GET /api/v1/cycles/{date}/{id}/events
func (h *CycleHandler) Events(w http.ResponseWriter, r *http.Request) {
	date, id, ok := cycleKey(w, r)
	if !ok {
		return
	}

	events, err := h.archive.LoadEvents(r.Context(), date, id)
	if err != nil {
		h.log.WithError(err).Error("Event load failed")
		respondError(w, http.StatusInternalServerError, "event load failed")
		return
	}
	if events == nil {
		events = []*contracts.TradingEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id": id,
		"events":   events,
	})
}

func cycleKey(w http.ResponseWriter, r *http.Request) (time.Time, string, bool) {
	vars := mux.Vars(r)
	date, err := time.Parse("2006-01-02", vars["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return time.Time{}, "", false
	}
	id := vars["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing cycle id")
		return time.Time{}, "", false
	}
	return date, id, true
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", raw)
}
