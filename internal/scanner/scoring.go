package scanner

import (
	"fmt"
	"sort"

	"github.com/wonny/riptide/internal/contracts"
)

// score turns the capital-funnel survivors into ranked candidates. The
// composite is a weighted sum of best event confidence, flow-ratio
// percentile within the surviving set, and the inverted risk penalty.
// Ties break on flow percentile, then symbol, so a re-run over the same
// input reproduces the exact ordering.
func (s *Scanner) score(survivors []string, in *Input, res *contracts.ScanResult) []contracts.Candidate {
	if len(survivors) == 0 {
		return nil
	}

	percentiles := flowPercentiles(survivors, in)
	w := s.cfg.Scoring

	candidates := make([]contracts.Candidate, 0, len(survivors))
	for _, sym := range survivors {
		sv := in.Universe.Symbols[sym]
		p := in.Profiles[sym]

		eventScore, reasons, kept := bestEvents(in.Events[sym], p.ConfidenceFloor)
		penalty := riskPenalty(sym, in)
		if penalty > p.MaxRiskScore {
			res.Dropped[sym] = "scoring: risk penalty above cap ceiling"
			continue
		}

		pct := percentiles[sym]
		score := w.EventWeight*eventScore + w.FlowWeight*pct + w.RiskWeight*(1.0-penalty)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		reasons = append(reasons, fmt.Sprintf("flow ratio p%02.0f at tier %s", pct*100, sv.Flow.Tier))

		candidates = append(candidates, contracts.Candidate{
			Symbol:         sym,
			CycleID:        in.CycleID,
			Score:          score,
			FlowPercentile: pct,
			RiskPenalty:    penalty,
			Reasons:        reasons,
			Events:         kept,
			CreatedAt:      in.Timestamp,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FlowPercentile != b.FlowPercentile {
			return a.FlowPercentile > b.FlowPercentile
		}
		return a.Symbol < b.Symbol
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// flowPercentiles ranks each survivor's inflow ratio within the
// surviving set. A lone survivor sits at the top percentile.
func flowPercentiles(survivors []string, in *Input) map[string]float64 {
	ratios := make(map[string]float64, len(survivors))
	for _, sym := range survivors {
		sv := in.Universe.Symbols[sym]
		ratios[sym] = sv.Flow.InflowRatio(sv.Snapshot.Amount)
	}

	ordered := append([]string(nil), survivors...)
	sort.Slice(ordered, func(i, j int) bool {
		if ratios[ordered[i]] != ratios[ordered[j]] {
			return ratios[ordered[i]] < ratios[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	out := make(map[string]float64, len(ordered))
	if len(ordered) == 1 {
		out[ordered[0]] = 1.0
		return out
	}
	for i, sym := range ordered {
		out[sym] = float64(i) / float64(len(ordered)-1)
	}
	return out
}

// bestEvents returns the highest qualifying confidence, human-readable
// reasons, and the events worth attaching to the candidate.
func bestEvents(events []*contracts.TradingEvent, floor float64) (float64, []string, []contracts.TradingEvent) {
	var best float64
	var reasons []string
	var kept []contracts.TradingEvent
	for _, e := range events {
		if e.Type == contracts.EventAuctionTransition || e.Confidence < floor {
			continue
		}
		if e.Confidence > best {
			best = e.Confidence
		}
		reasons = append(reasons, fmt.Sprintf("%s confidence %.2f", e.Type, e.Confidence))
		kept = append(kept, *e.Clone())
	}
	return best, reasons, kept
}

// riskPenalty blends how extended the symbol is, how degraded its data
// inputs are, and how far down the tier chain its flow came from.
func riskPenalty(sym string, in *Input) float64 {
	sv := in.Universe.Symbols[sym]
	p := in.Profiles[sym]

	relPos, ok := relativePosition(sv)
	if !ok {
		relPos = 1.0
	}

	tierPart := float64(sv.Flow.Tier.Rank()) / 3.0
	degradedPart := 0.0
	if p.DegradedCap {
		degradedPart = 1.0
	}

	penalty := 0.5*relPos + 0.3*tierPart + 0.2*degradedPart
	if penalty > 1 {
		penalty = 1
	}
	return penalty
}
