package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
)

// Request describes one batch optimization run.
type Request struct {
	// Vessels are the unassigned or reassignable vessels to place.
	Vessels []model.Vessel
	// Berths are the candidate berths.
	Berths []model.Berth
	// Horizon bounds the schedule region the run may touch. Assignments
	// outside it are held fixed.
	Horizon model.Window
	// PreferredEtas carries the requested arrival per vessel; vessels
	// without an entry default to the horizon start.
	PreferredEtas map[string]time.Time
	// Replanned maps a vessel id to its existing assignment id, freed for
	// replanning during the run.
	Replanned map[string]string

	fixed []model.Assignment
}

func (r Request) preferredEta(vesselID string) time.Time {
	if t, ok := r.PreferredEtas[vesselID]; ok {
		return t
	}
	return r.Horizon.From
}

// Unassigned names a vessel the search could not place and why.
type Unassigned struct {
	VesselID string
	Reason   string
}

// Result is the outcome of one optimization run.
type Result struct {
	// Assignments are the proposed schedule entries for the replanned
	// vessels, sorted by window start. They are proposals; nothing is
	// committed by the optimizer itself.
	Assignments []model.Assignment
	Unassigned  []Unassigned
	Cost        float64
	// Optimal is false when the search stopped on its time or iteration
	// budget with improving moves possibly remaining.
	Optimal    bool
	Iterations int
	Elapsed    time.Duration
}

// Optimizer searches for a full assignment of pending vessels to berths that
// satisfies every hard constraint and minimizes the weighted objective. The
// search is LP-seeded greedy construction followed by bounded local search;
// it never returns a solution violating a hard constraint.
type Optimizer struct {
	cfg       Config
	validator *constraint.Validator
	scorer    *scoring.Engine
	log       logger.Logger
}

// New creates an Optimizer.
func New(cfg Config, validator *constraint.Validator, scorer *scoring.Engine, log logger.Logger) *Optimizer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Optimizer{cfg: cfg, validator: validator, scorer: scorer, log: log}
}

// Config returns the active configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// searchState is a working schedule copy the search mutates freely. The live
// schedule is never touched; proposals apply atomically elsewhere.
type searchState struct {
	snap schedule.Snapshot
	plan plan
}

func (s *searchState) place(a model.Assignment) {
	s.snap.Assignments[a.ID] = a
	s.plan[a.VesselID] = a
}

func (s *searchState) remove(vesselID string) {
	if a, ok := s.plan[vesselID]; ok {
		delete(s.snap.Assignments, a.ID)
		delete(s.plan, vesselID)
	}
}

// Optimize runs one bounded search. A cancelled context leaves the live
// schedule untouched and returns the best feasible solution found so far.
func (o *Optimizer) Optimize(ctx context.Context, snap schedule.Snapshot, req Request) Result {
	start := time.Now()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TimeBudget())
		defer cancel()
	}

	state := o.baseState(snap, req)
	req.fixed = fixedWithin(state.snap, req.Horizon)

	order := o.seedOrder(state.snap, req)
	unassigned := o.construct(&state, req, order)
	iterations, converged := o.improve(ctx, &state, req)

	// vessels that became placeable during local search drop off the list
	kept := unassigned[:0]
	for _, u := range unassigned {
		if _, ok := state.plan[u.VesselID]; !ok {
			kept = append(kept, u)
		}
	}

	res := Result{
		Unassigned: kept,
		Cost:       o.cost(state.plan, req),
		Optimal:    converged,
		Iterations: iterations,
		Elapsed:    time.Since(start),
	}
	for _, a := range state.plan {
		res.Assignments = append(res.Assignments, a)
	}
	sort.Slice(res.Assignments, func(i, j int) bool {
		if res.Assignments[i].Window.From.Equal(res.Assignments[j].Window.From) {
			return res.Assignments[i].VesselID < res.Assignments[j].VesselID
		}
		return res.Assignments[i].Window.From.Before(res.Assignments[j].Window.From)
	})
	o.log.Infof("optimizer placed %d/%d vessels, cost %.1f, optimal=%v, %d iterations in %s",
		len(res.Assignments), len(req.Vessels), res.Cost, res.Optimal, res.Iterations, res.Elapsed.Round(time.Millisecond))
	return res
}

// PlanCost evaluates the objective for an arbitrary plan over the same
// request, used to compare a proposal against the pre-trigger state. Scores
// are recomputed from the request's vessel and berth records so a stale
// persisted score cannot skew the comparison.
func (o *Optimizer) PlanCost(snap schedule.Snapshot, req Request, assignments []model.Assignment) float64 {
	state := o.baseState(snap, req)
	req.fixed = fixedWithin(state.snap, req.Horizon)
	vesselByID := make(map[string]model.Vessel, len(req.Vessels))
	for _, v := range req.Vessels {
		vesselByID[v.ID] = v
	}
	berthByID := make(map[string]model.Berth, len(req.Berths))
	for _, b := range req.Berths {
		berthByID[b.ID] = b
	}
	p := make(plan, len(assignments))
	for _, a := range assignments {
		if v, okV := vesselByID[a.VesselID]; okV {
			if b, okB := berthByID[a.BerthID]; okB {
				a.Score, _ = o.scorer.Score(v, b, a.Window, req.preferredEta(v.ID))
			}
		}
		p[a.VesselID] = a
	}
	return o.cost(p, req)
}

// baseState copies the snapshot and frees the replanned assignments.
func (o *Optimizer) baseState(snap schedule.Snapshot, req Request) searchState {
	working := schedule.Snapshot{
		Version:     snap.Version,
		Taken:       snap.Taken,
		Assignments: make(map[string]model.Assignment, len(snap.Assignments)),
		Resources:   snap.Resources,
		Conflicts:   snap.Conflicts,
	}
	for id, a := range snap.Assignments {
		working.Assignments[id] = a
	}
	for _, assignmentID := range req.Replanned {
		delete(working.Assignments, assignmentID)
	}
	return searchState{snap: working, plan: make(plan, len(req.Vessels))}
}

func fixedWithin(snap schedule.Snapshot, horizon model.Window) []model.Assignment {
	if !horizon.Valid() {
		return nil
	}
	return snap.ActiveWithin(horizon.From, horizon.To)
}

// seedOrder computes the berth preference order per vessel. The LP
// relaxation of the assignment problem supplies fractional preferences; on
// solver failure the raw scores order the construction instead.
func (o *Optimizer) seedOrder(base schedule.Snapshot, req Request) map[string][]string {
	scores := make([][]float64, len(req.Vessels))
	for vi, v := range req.Vessels {
		scores[vi] = make([]float64, len(req.Berths))
		for bi, b := range req.Berths {
			if w, _, ok := o.earliestSlot(base, v, b, req); ok {
				s, _ := o.scorer.Score(v, b, w, req.preferredEta(v.ID))
				scores[vi][bi] = s
			}
		}
	}

	capacity := make([]float64, len(req.Berths))
	slotEstimate := 1.0
	if req.Horizon.Valid() {
		per := 12*time.Hour + o.validator.Config().Buffer()
		slotEstimate = float64(req.Horizon.Duration()) / float64(per)
		if slotEstimate < 1 {
			slotEstimate = 1
		}
	}
	for i := range capacity {
		capacity[i] = slotEstimate
	}

	weights := scores
	if frac, err := lpSolve(scores, capacity); err == nil && frac != nil {
		weights = make([][]float64, len(req.Vessels))
		for vi := range frac {
			weights[vi] = make([]float64, len(req.Berths))
			for bi := range frac[vi] {
				// fractional preference first, raw score as tiebreaker
				weights[vi][bi] = frac[vi][bi]*1000 + scores[vi][bi]
			}
		}
	} else if err != nil {
		o.log.Warnf("lp relaxation failed, ordering by score: %v", err)
	}

	order := make(map[string][]string, len(req.Vessels))
	for vi, v := range req.Vessels {
		ids := make([]string, len(req.Berths))
		for bi, b := range req.Berths {
			ids[bi] = b.ID
		}
		wrow := weights[vi]
		idx := make([]int, len(ids))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return wrow[idx[a]] > wrow[idx[b]] })
		ordered := make([]string, len(ids))
		for i, j := range idx {
			ordered[i] = ids[j]
		}
		order[v.ID] = ordered
	}
	return order
}

// earliestSlot finds the first feasible window for the vessel at the berth,
// stepping from the preferred ETA in slot increments up to the shift bound.
// It gives up immediately when the berth is physically unsuitable.
func (o *Optimizer) earliestSlot(snap schedule.Snapshot, v model.Vessel, b model.Berth, req Request) (model.Window, constraint.Result, bool) {
	eta := req.preferredEta(v.ID)
	dwell := v.EstimatedDwell()
	var last constraint.Result
	for shift := time.Duration(0); shift <= o.cfg.MaxShift(); shift += o.cfg.Slot() {
		w := model.NewWindow(eta.Add(shift), dwell)
		if req.Horizon.Valid() && w.To.After(req.Horizon.To) {
			break
		}
		res := o.validator.Check(snap, v, b, w, "")
		if res.Feasible() {
			return w, res, true
		}
		last = res
		if !timeShiftable(res) {
			break
		}
	}
	return model.Window{}, last, false
}

func timeShiftable(res constraint.Result) bool {
	for _, v := range res.Violations {
		switch v.RuleID {
		case constraint.RuleBerthInactive, constraint.RuleBerthType,
			constraint.RuleFitLOA, constraint.RuleFitBeam, constraint.RuleFitDraft:
			return false
		}
	}
	return true
}

// construct greedily places vessels in priority order, trying each vessel's
// berths in seed order.
func (o *Optimizer) construct(state *searchState, req Request, order map[string][]string) []Unassigned {
	vessels := append([]model.Vessel(nil), req.Vessels...)
	sort.SliceStable(vessels, func(i, j int) bool {
		if vessels[i].Priority != vessels[j].Priority {
			return vessels[i].Priority < vessels[j].Priority
		}
		ei, ej := req.preferredEta(vessels[i].ID), req.preferredEta(vessels[j].ID)
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return vessels[i].ID < vessels[j].ID
	})

	berthByID := make(map[string]model.Berth, len(req.Berths))
	for _, b := range req.Berths {
		berthByID[b.ID] = b
	}

	var unassigned []Unassigned
	for _, v := range vessels {
		placed := false
		reason := "no feasible slot within the shift horizon"
		for _, berthID := range order[v.ID] {
			b := berthByID[berthID]
			w, res, ok := o.earliestSlot(state.snap, v, b, req)
			if !ok {
				if first := res.First(); first != nil {
					reason = first.Message
				}
				continue
			}
			score, _ := o.scorer.Score(v, b, w, req.preferredEta(v.ID))
			state.place(o.proposal(v, b, w, score, req))
			placed = true
			break
		}
		if !placed {
			unassigned = append(unassigned, Unassigned{VesselID: v.ID, Reason: reason})
		}
	}
	return unassigned
}

func (o *Optimizer) proposal(v model.Vessel, b model.Berth, w model.Window, score float64, req Request) model.Assignment {
	id := req.Replanned[v.ID]
	if id == "" {
		id = uuid.NewString()
	}
	return model.Assignment{
		ID:       id,
		VesselID: v.ID,
		BerthID:  b.ID,
		Window:   w,
		Status:   model.StatusScheduled,
		Score:    score,
	}
}

// improve runs first-improvement local search: relocate one vessel to a
// better berth or slot, until no move improves the objective or the budget
// runs out. Returns the iteration count and whether the search converged.
func (o *Optimizer) improve(ctx context.Context, state *searchState, req Request) (int, bool) {
	iterations := 0
	for {
		if ctx.Err() != nil {
			return iterations, false
		}
		improved := false
		current := o.cost(state.plan, req)
		for _, v := range req.Vessels {
			if iterations >= o.cfg.MaxIterations {
				return iterations, false
			}
			if ctx.Err() != nil {
				return iterations, false
			}
			iterations++

			existing, had := state.plan[v.ID]
			state.remove(v.ID)

			best, bestCost, found := existing, current, had
			for _, b := range req.Berths {
				w, _, ok := o.earliestSlot(state.snap, v, b, req)
				if !ok {
					continue
				}
				score, _ := o.scorer.Score(v, b, w, req.preferredEta(v.ID))
				candidate := o.proposal(v, b, w, score, req)
				state.place(candidate)
				c := o.cost(state.plan, req)
				state.remove(v.ID)
				if !found || c < bestCost-1e-9 {
					best, bestCost, found = candidate, c, true
				}
			}

			if found {
				state.place(best)
				if bestCost < current-1e-9 {
					improved = true
					current = bestCost
				}
			}
		}
		if !improved {
			return iterations, true
		}
	}
}
