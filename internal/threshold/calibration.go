package threshold

import "time"

// CalibrationRecord documents one recalibration nudge, for the audit
// trail. Recalibration is an explicit, out-of-band adjustment invoked by
// the nightly job, never automatic online learning and never mid-session.
type CalibrationRecord struct {
	AppliedAt         time.Time `json:"applied_at"`
	HitRate           float64   `json:"hit_rate"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	OldMultiplier     float64   `json:"old_multiplier"`
	NewMultiplier     float64   `json:"new_multiplier"`
	Direction         string    `json:"direction"` // "tighten", "loosen", "hold"
}

// Recalibrate nudges the global base multiplier: tighten on excess false
// positives, loosen on excess missed opportunities. The step and bounds
// come from calibration config; the nudge is clamped, logged, and
// returned for persistence.
func (e *Engine) Recalibrate(hitRate, falsePositiveRate float64) CalibrationRecord {
	cal := e.cfg.Calibration

	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.baseMult
	next := old
	direction := "hold"

	switch {
	case falsePositiveRate > cal.MaxFalsePositiveRate:
		next = old + cal.Step
		direction = "tighten"
	case hitRate < cal.TargetHitRate && falsePositiveRate <= cal.MaxFalsePositiveRate:
		next = old - cal.Step
		direction = "loosen"
	}

	if next < cal.MinMultiplier {
		next = cal.MinMultiplier
	}
	if next > cal.MaxMultiplier {
		next = cal.MaxMultiplier
	}

	e.baseMult = next

	rec := CalibrationRecord{
		AppliedAt:         time.Now(),
		HitRate:           hitRate,
		FalsePositiveRate: falsePositiveRate,
		OldMultiplier:     old,
		NewMultiplier:     next,
		Direction:         direction,
	}

	e.log.WithFields(map[string]interface{}{
		"hit_rate":            hitRate,
		"false_positive_rate": falsePositiveRate,
		"old_multiplier":      old,
		"new_multiplier":      next,
		"direction":           direction,
	}).Info("Threshold recalibration applied")

	return rec
}

// BaseMultiplier returns the current calibration multiplier.
func (e *Engine) BaseMultiplier() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseMult
}
