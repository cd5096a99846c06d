package reopt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/schedule"
)

// State tracks one re-optimization run through its lifecycle.
type State int

const (
	StateIdle State = iota
	StateTriggered
	StateSearching
	StateApplied
	StateProposed
	StateNoChangeNeeded
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateSearching:
		return "searching"
	case StateApplied:
		return "applied"
	case StateProposed:
		return "proposed"
	case StateNoChangeNeeded:
		return "no_change_needed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TriggerKind classifies what fired a re-optimization.
type TriggerKind int

const (
	TriggerEtaDeviation TriggerKind = iota
	TriggerConflict
)

// String returns a human-readable representation of the trigger kind.
func (k TriggerKind) String() string {
	if k == TriggerConflict {
		return "conflict"
	}
	return "eta_deviation"
}

// EtaDeviation describes how far a vessel's track drifted from the plan.
type EtaDeviation struct {
	VesselID        string
	SpeedDeltaKnots float64
	CourseDeltaDeg  float64
	EtaShift        time.Duration
}

// Trigger is one re-optimization cause.
type Trigger struct {
	Kind      TriggerKind
	At        time.Time
	Deviation EtaDeviation
	Conflict  model.Conflict
}

// EtaTrigger builds a deviation trigger.
func EtaTrigger(dev EtaDeviation, at time.Time) Trigger {
	return Trigger{Kind: TriggerEtaDeviation, At: at, Deviation: dev}
}

// ConflictTrigger builds a conflict trigger.
func ConflictTrigger(c model.Conflict, at time.Time) Trigger {
	return Trigger{Kind: TriggerConflict, At: at, Conflict: c}
}

// Change is one proposed schedule delta entry.
type Change struct {
	AssignmentID string
	VesselID     string
	FromBerth    string
	ToBerth      string
	FromWindow   model.Window
	ToWindow     model.Window
	BerthChanged bool
}

// Shift returns the start-time displacement of the change, always positive.
func (c Change) Shift() time.Duration {
	d := c.ToWindow.From.Sub(c.FromWindow.From)
	if d < 0 {
		d = -d
	}
	return d
}

// Result is the outcome of one re-optimization run.
type Result struct {
	State      State
	Trigger    Trigger
	Horizon    model.Window
	Changes    []Change
	CostBefore float64
	CostAfter  float64
	// Reason carries the unresolved constraint on failure, or the discard
	// explanation on NoChangeNeeded.
	Reason  string
	Optimal bool
	Elapsed time.Duration
}

// Improvement is the aggregate cost reduction the run achieved.
func (r Result) Improvement() float64 { return r.CostBefore - r.CostAfter }

// Engine reacts to ETA drift and detected conflicts with a minimal-disruption
// schedule delta: it re-runs the optimizer over the affected horizon only,
// compares the proposal against the pre-trigger cost, and either applies it,
// surfaces it for operator confirmation, or discards it.
type Engine struct {
	cfg   Config
	store *schedule.MemoryStore
	lock  *schedule.HorizonLock
	opt   *optimizer.Optimizer
	log   logger.Logger
}

// New creates an Engine.
func New(cfg Config, store *schedule.MemoryStore, lock *schedule.HorizonLock, opt *optimizer.Optimizer, log logger.Logger) *Engine {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{cfg: cfg, store: store, lock: lock, opt: opt, log: log}
}

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.cfg }

// ShouldTrigger reports whether a deviation or conflict is severe enough to
// fire a run.
func (e *Engine) ShouldTrigger(t Trigger) bool {
	switch t.Kind {
	case TriggerConflict:
		return t.Conflict.Open() && t.Conflict.Severity >= model.SeverityHigh
	default:
		d := t.Deviation
		shift := d.EtaShift
		if shift < 0 {
			shift = -shift
		}
		return d.SpeedDeltaKnots > e.cfg.SpeedDeltaKnots ||
			d.CourseDeltaDeg > e.cfg.CourseDeltaDeg ||
			shift > e.cfg.EtaShift()
	}
}

// Reoptimize runs the full trigger lifecycle. The horizon lock serializes it
// against concurrent optimizer runs over an overlapping window; the proposal
// applies atomically through the versioned commit path or not at all.
func (e *Engine) Reoptimize(ctx context.Context, t Trigger, vessels map[string]model.Vessel, berths []model.Berth, etas map[string]time.Time) (Result, error) {
	start := time.Now()
	horizon := model.NewWindow(t.At, e.cfg.Horizon())
	res := Result{State: StateTriggered, Trigger: t, Horizon: horizon}

	release, err := e.lock.Acquire(ctx, horizon)
	if err != nil {
		res.State = StateFailed
		res.Reason = "horizon lock not acquired"
		return res, fmt.Errorf("reopt: acquire horizon: %w", err)
	}
	defer release()

	snap := e.store.Snapshot()
	replanned, current := e.affected(snap, vessels, horizon)
	if len(replanned) == 0 {
		res.State = StateNoChangeNeeded
		res.Reason = "no replannable assignments in the affected horizon"
		res.Elapsed = time.Since(start)
		return res, nil
	}

	req := optimizer.Request{
		Berths:        berths,
		Horizon:       horizon,
		PreferredEtas: etas,
		Replanned:     replanned,
	}
	for vesselID := range replanned {
		req.Vessels = append(req.Vessels, vessels[vesselID])
	}
	sort.Slice(req.Vessels, func(i, j int) bool { return req.Vessels[i].ID < req.Vessels[j].ID })

	res.CostBefore = e.opt.PlanCost(snap, req, current)
	res.State = StateSearching

	opt := e.opt.Optimize(ctx, snap, req)
	res.CostAfter = opt.Cost
	res.Optimal = opt.Optimal
	res.Elapsed = time.Since(start)

	if len(opt.Unassigned) > 0 {
		res.State = StateFailed
		res.Reason = fmt.Sprintf("no feasible slot for vessel %s: %s", opt.Unassigned[0].VesselID, opt.Unassigned[0].Reason)
		e.log.Warnf("reopt %s failed: %s", t.Kind, res.Reason)
		return res, nil
	}
	if res.Improvement() < e.cfg.MinBenefit {
		res.State = StateNoChangeNeeded
		res.Reason = fmt.Sprintf("improvement %.2f below minimum benefit %.2f", res.Improvement(), e.cfg.MinBenefit)
		return res, nil
	}

	res.Changes = delta(current, opt.Assignments)
	if len(res.Changes) == 0 {
		res.State = StateNoChangeNeeded
		res.Reason = "proposal identical to the current schedule"
		return res, nil
	}

	if !e.autoApplicable(res.Changes) {
		res.State = StateProposed
		e.log.Infof("reopt %s proposed %d changes for confirmation, improvement %.2f", t.Kind, len(res.Changes), res.Improvement())
		return res, nil
	}

	batch := carryLifecycle(current, opt.Assignments)
	if err := e.store.PutAll(snap.Version, batch); err != nil {
		res.State = StateFailed
		res.Reason = "schedule changed during the search"
		return res, fmt.Errorf("reopt: apply proposal: %w", err)
	}
	if t.Kind == TriggerConflict {
		e.store.ResolveConflict(t.Conflict.Key(), time.Now().UTC(), "reoptimized")
	}
	res.State = StateApplied
	e.log.Infof("reopt %s applied %d changes, improvement %.2f in %s", t.Kind, len(res.Changes), res.Improvement(), res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// affected selects the replannable assignments inside the horizon: scheduled
// or approaching calls whose vessel is known. Berthed vessels stay put.
func (e *Engine) affected(snap schedule.Snapshot, vessels map[string]model.Vessel, horizon model.Window) (map[string]string, []model.Assignment) {
	replanned := make(map[string]string)
	var current []model.Assignment
	for _, a := range snap.ActiveWithin(horizon.From, horizon.To) {
		if a.Status != model.StatusScheduled && a.Status != model.StatusApproaching {
			continue
		}
		if _, ok := vessels[a.VesselID]; !ok {
			continue
		}
		replanned[a.VesselID] = a.ID
		current = append(current, a)
	}
	return replanned, current
}

// carryLifecycle keeps the status, actual times and overrides of the existing
// entries on the optimizer's freshly built proposals.
func carryLifecycle(current, proposed []model.Assignment) []model.Assignment {
	byID := make(map[string]model.Assignment, len(current))
	for _, a := range current {
		byID[a.ID] = a
	}
	out := make([]model.Assignment, 0, len(proposed))
	for _, p := range proposed {
		if c, ok := byID[p.ID]; ok {
			p.Status = c.Status
			p.ATA = c.ATA
			p.TideOverride = c.TideOverride
			p.ConflictCount = c.ConflictCount
		}
		out = append(out, p)
	}
	return out
}

// delta lists the entries of the proposal that differ from the current plan.
func delta(current, proposed []model.Assignment) []Change {
	byID := make(map[string]model.Assignment, len(current))
	for _, a := range current {
		byID[a.ID] = a
	}
	var changes []Change
	for _, p := range proposed {
		c, ok := byID[p.ID]
		if !ok {
			continue
		}
		if c.BerthID == p.BerthID && c.Window == p.Window {
			continue
		}
		changes = append(changes, Change{
			AssignmentID: p.ID,
			VesselID:     p.VesselID,
			FromBerth:    c.BerthID,
			ToBerth:      p.BerthID,
			FromWindow:   c.Window,
			ToWindow:     p.Window,
			BerthChanged: c.BerthID != p.BerthID,
		})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].AssignmentID < changes[j].AssignmentID })
	return changes
}

// autoApplicable allows unattended apply only for pure time shifts within
// tolerance. Berth reassignments always need an operator.
func (e *Engine) autoApplicable(changes []Change) bool {
	for _, c := range changes {
		if c.BerthChanged || c.Shift() > e.cfg.AutoShiftTolerance() {
			return false
		}
	}
	return true
}
