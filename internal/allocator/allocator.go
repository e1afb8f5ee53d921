package allocator

import (
	"fmt"
	"time"

	"github.com/wonny/riptide/internal/contracts"
	"github.com/wonny/riptide/internal/market"
	"github.com/wonny/riptide/internal/strategyconfig"
	"github.com/wonny/riptide/pkg/logger"
)

// Rescorer recomputes a held symbol's opportunity score through the
// same scoring path the scanner uses. A purchase-time label is never
// trusted; holdings compete against candidates on current numbers.
type Rescorer interface {
	CurrentScore(symbol string) (float64, bool)
}

// Input is one allocation pass's worth of state. The portfolio is a
// consistent read snapshot owned by the execution layer; the allocator
// never mutates it.
type Input struct {
	CycleID    string
	Now        time.Time
	Candidates []contracts.Candidate
	Portfolio  *contracts.PortfolioState

	// Prices supplies current prices for protective levels on buys.
	// Missing symbols simply get no stop/take levels.
	Prices map[string]float64
}

// Allocator converts a ranked candidate list plus portfolio state into
// per-symbol decisions. It runs as one serialized pass per cycle.
type Allocator struct {
	cfg        strategyconfig.Allocation
	clock      *market.Clock
	rescorer   Rescorer
	log        *logger.Logger
	configHash string
}

// New creates an allocator. configHash ties every decision back to the
// strategy config that produced it.
func New(cfg strategyconfig.Allocation, clock *market.Clock, rescorer Rescorer, configHash string, log *logger.Logger) *Allocator {
	return &Allocator{
		cfg:        cfg,
		clock:      clock,
		rescorer:   rescorer,
		log:        log,
		configHash: configHash,
	}
}

// Allocate emits this cycle's decisions. A nil portfolio yields zero
// decisions: absence of action, never a guessed allocation.
func (a *Allocator) Allocate(in *Input) []contracts.AllocationDecision {
	if in.Portfolio == nil {
		a.log.WithField("cycle_id", in.CycleID).Error("Portfolio state unavailable, emitting no decisions")
		return nil
	}

	var decisions []contracts.AllocationDecision
	decisions = append(decisions, a.buyDecisions(in)...)
	decisions = append(decisions, a.holdingDecisions(in)...)
	decisions = a.clampRiskBudget(in, decisions)

	for i := range decisions {
		decisions[i].CycleID = in.CycleID
		decisions[i].ConfigHash = a.configHash
		decisions[i].CreatedAt = in.Now
	}
	return decisions
}

// buyDecisions sizes new entries: concentrated when the top candidate
// holds a cliff advantage over the runner-up, tier-split otherwise.
func (a *Allocator) buyDecisions(in *Input) []contracts.AllocationDecision {
	cands := unheld(in.Candidates, in.Portfolio)
	if len(cands) == 0 {
		return nil
	}

	deployable := deployableWeight(in.Portfolio)
	if deployable <= 0 {
		return nil
	}

	if len(cands) >= 2 && cands[0].Score >= a.cfg.CliffMultiple*cands[1].Score {
		top := cands[0]
		weight := a.cfg.SinglePositionCap
		if weight > deployable {
			weight = deployable
		}
		a.log.WithFields(map[string]interface{}{
			"symbol": top.Symbol,
			"score":  top.Score,
			"runner": cands[1].Score,
		}).Info("Cliff advantage, concentrating allocation")
		return []contracts.AllocationDecision{a.buy(top, weight, in,
			fmt.Sprintf("cliff advantage %.2f over runner-up %.2f", top.Score, cands[1].Score))}
	}

	n := len(cands)
	if n > len(a.cfg.TierSplits) {
		n = len(a.cfg.TierSplits)
	}
	split := a.cfg.TierSplits[n-1]

	out := make([]contracts.AllocationDecision, 0, n)
	for i := 0; i < n; i++ {
		weight := split[i] * deployable
		if weight > a.cfg.SinglePositionCap {
			weight = a.cfg.SinglePositionCap
		}
		if weight <= 0 {
			continue
		}
		out = append(out, a.buy(cands[i], weight, in,
			fmt.Sprintf("tier split %d of %d, score %.2f", i+1, n, cands[i].Score)))
	}
	return out
}

func (a *Allocator) buy(c contracts.Candidate, weight float64, in *Input, rationale string) contracts.AllocationDecision {
	d := contracts.AllocationDecision{
		Symbol:       c.Symbol,
		Action:       contracts.ActionBuy,
		TargetWeight: weight,
		Rationale:    rationale,
	}
	if price, ok := in.Prices[c.Symbol]; ok && price > 0 {
		stop := price * (1 - a.cfg.StopLossPct)
		take := price * (1 + a.cfg.TakeProfitPct)
		d.StopLoss = &stop
		d.TakeProfit = &take
	}
	return d
}

// holdingDecisions runs the holding-vs-candidate contest. A holding
// whose recomputed score is beaten by an unheld candidate beyond the
// margin frees its capital, unless the same-session guard converts the
// exit into a flagged hold.
func (a *Allocator) holdingDecisions(in *Input) []contracts.AllocationDecision {
	best, ok := bestUnheldScore(in.Candidates, in.Portfolio)
	if !ok {
		return nil
	}

	var out []contracts.AllocationDecision
	for i := range in.Portfolio.Positions {
		pos := &in.Portfolio.Positions[i]

		current, ok := a.rescorer.CurrentScore(pos.Symbol)
		if !ok {
			// No current score, no action. Never sell on a stale label.
			continue
		}
		if best <= current+a.cfg.PKMargin {
			continue
		}

		if a.clock.SameSession(pos.EntryTime, in.Now) {
			out = append(out, contracts.AllocationDecision{
				Symbol:       pos.Symbol,
				Action:       contracts.ActionHold,
				TargetWeight: in.Portfolio.PositionWeight(pos.Symbol),
				RiskFlag:     true,
				Rationale: fmt.Sprintf(
					"score %.2f beaten by candidate %.2f but entered this session, sell blocked until next session",
					current, best),
			})
			continue
		}

		out = append(out, contracts.AllocationDecision{
			Symbol:       pos.Symbol,
			Action:       contracts.ActionSell,
			TargetWeight: 0,
			Rationale: fmt.Sprintf(
				"recomputed score %.2f beaten by candidate %.2f beyond margin %.2f",
				current, best, a.cfg.PKMargin),
		})
	}
	return out
}

// clampRiskBudget scales all BUY weights down proportionally when the
// proposed exposure would push estimated max drawdown past the soft
// limit. Nothing is dropped arbitrarily.
func (a *Allocator) clampRiskBudget(in *Input, decisions []contracts.AllocationDecision) []contracts.AllocationDecision {
	softLimit := in.Portfolio.RiskBudget
	if softLimit <= 0 {
		softLimit = a.cfg.MaxDrawdownSoftLimit
	}

	existing := 0.0
	for i := range in.Portfolio.Positions {
		existing += in.Portfolio.PositionWeight(in.Portfolio.Positions[i].Symbol)
	}
	existingDD := existing * a.cfg.PerPositionDrawdown

	proposed := 0.0
	for i := range decisions {
		if decisions[i].Action == contracts.ActionBuy {
			proposed += decisions[i].TargetWeight
		}
	}
	proposedDD := proposed * a.cfg.PerPositionDrawdown
	if proposedDD == 0 || existingDD+proposedDD <= softLimit {
		return decisions
	}

	headroom := softLimit - existingDD
	if headroom < 0 {
		headroom = 0
	}
	scale := headroom / proposedDD

	a.log.WithFields(map[string]interface{}{
		"scale":      scale,
		"soft_limit": softLimit,
	}).Warn("Risk budget exceeded, scaling buy weights")

	for i := range decisions {
		if decisions[i].Action == contracts.ActionBuy {
			decisions[i].TargetWeight *= scale
			decisions[i].Rationale += fmt.Sprintf("; scaled x%.2f by risk budget", scale)
		}
	}
	return decisions
}

// unheld filters candidates already in the book, preserving rank order.
func unheld(cands []contracts.Candidate, pf *contracts.PortfolioState) []contracts.Candidate {
	out := make([]contracts.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, held := pf.Find(c.Symbol); !held {
			out = append(out, c)
		}
	}
	return out
}

func bestUnheldScore(cands []contracts.Candidate, pf *contracts.PortfolioState) (float64, bool) {
	best := 0.0
	found := false
	for _, c := range cands {
		if _, held := pf.Find(c.Symbol); held {
			continue
		}
		if c.Score > best {
			best = c.Score
			found = true
		}
	}
	return best, found
}

// deployableWeight is the cash fraction of equity available for new
// exposure this cycle.
func deployableWeight(pf *contracts.PortfolioState) float64 {
	equity := pf.Equity()
	if equity <= 0 {
		return 0
	}
	return pf.Cash / equity
}
