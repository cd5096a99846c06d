package scoring

import (
	"fmt"
	"time"

	"github.com/harborops/berthd/core/model"
)

// HistoryProvider surfaces past performance of a vessel class at a berth as
// a normalized score in [0, 1]. The second return value is false when no
// history exists.
type HistoryProvider interface {
	BerthScore(class model.VesselType, berthID string) (float64, bool)
}

// Breakdown itemizes a score by factor. Each value is already weighted, so
// the factors sum to the total.
type Breakdown struct {
	PhysicalMargin float64
	WaitingTime    float64
	CraneAdequacy  float64
	TypeMatch      float64
	History        float64
	Priority       float64
	Wait           time.Duration // raw wait behind the waiting-time factor
}

// Total returns the combined score.
func (b Breakdown) Total() float64 {
	return b.PhysicalMargin + b.WaitingTime + b.CraneAdequacy + b.TypeMatch + b.History + b.Priority
}

// Reasons renders the breakdown into short explanations for ranked
// suggestions, strongest factor first.
func (b Breakdown) Reasons(vessel model.Vessel, berth model.Berth) []string {
	var reasons []string
	if b.Wait <= 0 {
		reasons = append(reasons, "zero estimated wait")
	} else {
		reasons = append(reasons, fmt.Sprintf("estimated wait %s", b.Wait.Round(time.Minute)))
	}
	demand := vessel.CraneDemand()
	avail := berth.Cranes
	if avail > demand {
		avail = demand
	}
	reasons = append(reasons, fmt.Sprintf("%d of %d cranes available", avail, demand))
	if vessel.Type == berth.Type {
		reasons = append(reasons, fmt.Sprintf("exact %s berth match", berth.Type))
	}
	if margin := berth.Length - vessel.LOA; margin > 0 {
		reasons = append(reasons, fmt.Sprintf("%.0fm length margin", margin))
	}
	if vessel.Priority == model.PriorityHigh && berth.PriorityCapable {
		reasons = append(reasons, "priority berth for priority call")
	}
	return reasons
}

// Engine computes the soft multi-factor fitness of a feasible
// (vessel, berth, window) triple. It is a pure function of its inputs and
// safe for concurrent use.
type Engine struct {
	cfg     Config
	history HistoryProvider
}

// New creates a scoring engine. history may be nil; the historical factor
// then stays at its neutral midpoint.
func New(cfg Config, history HistoryProvider) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg, history: history}
}

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.cfg }

// Score rates the triple. preferredEta is the vessel's requested arrival;
// wait is the distance from it to the proposed window start.
func (e *Engine) Score(vessel model.Vessel, berth model.Berth, w model.Window, preferredEta time.Time) (float64, Breakdown) {
	caps := e.cfg.Weights
	var b Breakdown

	b.PhysicalMargin = caps.PhysicalMargin * physicalMargin(vessel, berth)
	b.Wait = w.From.Sub(preferredEta)
	b.WaitingTime = caps.WaitingTime * waitScore(b.Wait, e.cfg.WaitHorizonHours)
	b.CraneAdequacy = caps.CraneAdequacy * craneScore(vessel, berth)
	b.TypeMatch = caps.TypeMatch * e.typeScore(vessel, berth)
	b.History = caps.History * e.historyScore(vessel, berth)
	b.Priority = caps.Priority * priorityScore(vessel, berth)

	return b.Total(), b
}

// physicalMargin rewards unused length and draft margin, averaged.
func physicalMargin(v model.Vessel, b model.Berth) float64 {
	if b.Length <= 0 || b.MaxDraft <= 0 {
		return 0
	}
	lm := (b.Length - v.LOA) / b.Length
	dm := (b.MaxDraft - v.Draft) / b.MaxDraft
	return clamp01((lm + dm) / 2)
}

// waitScore is maximal at zero wait and decays linearly to zero at the
// configured horizon.
func waitScore(wait time.Duration, horizonHours float64) float64 {
	if wait <= 0 {
		return 1
	}
	return clamp01(1 - wait.Hours()/horizonHours)
}

// craneScore is the ratio of available cranes to the estimated requirement.
func craneScore(v model.Vessel, b model.Berth) float64 {
	demand := v.CraneDemand()
	if demand == 0 {
		return 1
	}
	return clamp01(float64(b.Cranes) / float64(demand))
}

func (e *Engine) typeScore(v model.Vessel, b model.Berth) float64 {
	if v.Type == b.Type {
		return 1
	}
	// incompatible pairs never reach scoring; the validator excludes them
	return e.cfg.PartialTypeMatch
}

func (e *Engine) historyScore(v model.Vessel, b model.Berth) float64 {
	if e.history != nil {
		if s, ok := e.history.BerthScore(v.Type, b.ID); ok {
			return clamp01(s)
		}
	}
	return 0.5 // neutral when no history exists
}

func priorityScore(v model.Vessel, b model.Berth) float64 {
	if v.Priority == model.PriorityHigh {
		if b.PriorityCapable {
			return 1
		}
		return 0
	}
	return 0.5
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
