package events

import (
	"fmt"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/pkg/logger"
)

// Router owns the detector set. Every snapshot goes to every registered
// detector; one detector blowing up is logged and dropped from the
// cycle's output without touching the others. Output order is
// registration order, never significance order.
type Router struct {
	detectors []Detector
	log       *logger.Logger
}

// NewRouter creates an empty router. Register detectors in the order
// their events should appear.
func NewRouter(log *logger.Logger) *Router {
	return &Router{log: log}
}

// Register appends a detector. Not safe to call once Process is in use;
// the orchestrator registers everything at startup.
func (r *Router) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Detectors returns how many detectors are registered.
func (r *Router) Detectors() int {
	return len(r.detectors)
}

// Process runs every detector against the snapshot. Nil results are
// skipped; a panicking detector contributes nothing this cycle.
func (r *Router) Process(snap *contracts.MarketSnapshot, rc *RollingContext) []*contracts.TradingEvent {
	var out []*contracts.TradingEvent
	for _, d := range r.detectors {
		evt, err := r.runOne(d, snap, rc)
		if err != nil {
			r.log.WithError(err).WithFields(map[string]interface{}{
				"detector": string(d.Type()),
				"symbol":   snap.Symbol,
			}).Error("Detector failed, excluded from cycle")
			continue
		}
		if evt == nil {
			continue
		}
		if !contracts.IsValidEventType(evt.Type) {
			r.log.WithFields(map[string]interface{}{
				"detector": string(d.Type()),
				"type":     string(evt.Type),
				"symbol":   snap.Symbol,
			}).Error("Detector emitted a type outside the closed set, dropped")
			continue
		}
		out = append(out, evt)
	}
	return out
}

// runOne isolates a single detector invocation. Panics become
// ErrDetectorFailure instead of taking down the cycle.
func (r *Router) runOne(d Detector, snap *contracts.MarketSnapshot, rc *RollingContext) (evt *contracts.TradingEvent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			evt = nil
			err = fmt.Errorf("%w: %s: %v", contracts.ErrDetectorFailure, d.Type(), rec)
		}
	}()
	return d.Detect(snap, rc), nil
}
