package optimizer

import (
	"time"

	"github.com/harborops/berthd/core/model"
)

// plan is one candidate solution under evaluation: proposed assignments for
// the replanned vessels, keyed by vessel id.
type plan map[string]model.Assignment

// Cost evaluates the weighted objective
// w1*wait + w2*idleness + w3*priority_penalty - w4*score
// over a plan. Lower is better. Unassigned vessels are charged the full wait
// horizon plus the priority penalty when applicable.
func (o *Optimizer) cost(p plan, req Request) float64 {
	var waitHours, scoreSum, priorityPenalties float64

	for _, v := range req.Vessels {
		a, ok := p[v.ID]
		if !ok {
			waitHours += o.cfg.MaxShiftHours
			if v.Priority == model.PriorityHigh {
				priorityPenalties++
			}
			continue
		}
		wait := a.Window.From.Sub(req.preferredEta(v.ID))
		if wait > 0 {
			waitHours += wait.Hours()
			if v.Priority == model.PriorityHigh && wait > time.Hour {
				priorityPenalties++
			}
		}
		scoreSum += a.Score
	}

	idle := o.idleness(p, req)

	return o.cfg.WaitWeight*waitHours +
		o.cfg.UtilizationWeight*idle +
		o.cfg.PriorityPenalty*priorityPenalties -
		o.cfg.ScoreWeight*scoreSum
}

// idleness sums (1 - utilization) across berths over the horizon.
func (o *Optimizer) idleness(p plan, req Request) float64 {
	if !req.Horizon.Valid() {
		return 0
	}
	horizon := req.Horizon.Duration()
	busy := make(map[string]time.Duration, len(req.Berths))
	add := func(a model.Assignment) {
		w := a.Window
		if w.From.Before(req.Horizon.From) {
			w.From = req.Horizon.From
		}
		if w.To.After(req.Horizon.To) {
			w.To = req.Horizon.To
		}
		if w.Valid() {
			busy[a.BerthID] += w.Duration()
		}
	}
	for _, a := range p {
		add(a)
	}
	for _, a := range req.fixed {
		add(a)
	}
	var idle float64
	for _, b := range req.Berths {
		idle += 1 - float64(busy[b.ID])/float64(horizon)
	}
	return idle
}
