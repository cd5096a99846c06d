package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/harborops/berthd/core/engine/logging"
	"github.com/harborops/berthd/core/events"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/prediction"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/metrics"
)

// OptimizeGlobal plans all pending vessels (or the given subset) over the
// horizon and commits the resulting schedule atomically. The horizon is locked
// for the duration of the run, so concurrent commits and re-optimizations of
// the same region queue behind it.
func (m *Manager) OptimizeGlobal(ctx context.Context, horizon model.Window, vesselIDs []string) (optimizer.Result, error) {
	snapBefore := m.store.Snapshot()
	vessels := m.pendingVessels(snapBefore, vesselIDs)
	if len(vessels) == 0 {
		return optimizer.Result{Optimal: true}, nil
	}

	release, err := m.lock.Acquire(ctx, horizon)
	if err != nil {
		return optimizer.Result{}, fmt.Errorf("engine: horizon lock: %w", err)
	}
	defer release()

	snap := m.store.Snapshot()
	req := optimizer.Request{
		Vessels:       vessels,
		Berths:        m.berthList(),
		Horizon:       horizon,
		PreferredEtas: m.predictedEtas(vessels),
	}
	res := m.optimizer.Optimize(ctx, snap, req)

	if len(res.Assignments) > 0 {
		if err := m.store.PutAll(snap.Version, res.Assignments); err != nil {
			return res, err
		}
		for _, a := range res.Assignments {
			v, verr := m.vessel(a.VesselID)
			if verr != nil {
				continue
			}
			cur := m.store.Snapshot()
			allocs, perr := m.pickResources(cur, v, a.Window, a.ID)
			if perr != nil {
				m.log.Warnf("resource allocation for %s skipped: %v", a.ID, perr)
				continue
			}
			if aerr := m.store.Allocate(cur.Version, a.ID, allocs); aerr != nil {
				return res, aerr
			}
			m.publish(events.CommitEvent{Assignment: a, Replanned: true})
		}
	}

	ids := make([]string, len(res.Assignments))
	for i, a := range res.Assignments {
		ids[i] = a.ID
	}
	m.record(ctx, func(s metrics.Sink) error {
		return s.RecordOptimize(metrics.OptimizeEvent{
			Vessels: len(vessels), Placed: len(res.Assignments),
			Iterations: res.Iterations, Optimal: res.Optimal,
			Cost: res.Cost, Elapsed: res.Elapsed, Time: time.Now(),
		})
	}, logging.DecisionRecord{
		Kind:            logging.KindOptimize,
		AssignmentIDs:   ids,
		Cost:            res.Cost,
		Outcome:         fmt.Sprintf("placed %d of %d", len(res.Assignments), len(vessels)),
		SnapshotVersion: snap.Version,
	})
	m.log.Infof("global optimization placed %d of %d vessels, cost %.1f, optimal=%t",
		len(res.Assignments), len(vessels), res.Cost, res.Optimal)
	return res, nil
}

// pendingVessels resolves the optimization scope: the named vessels, or every
// registered vessel without an active schedule entry.
func (m *Manager) pendingVessels(snap schedule.Snapshot, ids []string) []model.Vessel {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Vessel
	if len(ids) > 0 {
		for _, id := range ids {
			if v, ok := m.vessels[id]; ok {
				out = append(out, v)
			}
		}
	} else {
		for _, v := range m.vessels {
			if _, busy := snap.ActiveForVessel(v.ID); !busy {
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// predictedEtas collects the latest estimate per vessel, preferring the
// predictor over raw reported positions.
func (m *Manager) predictedEtas(vessels []model.Vessel) map[string]time.Time {
	etas := make(map[string]time.Time, len(vessels))
	for _, v := range vessels {
		if m.predictor != nil {
			if p, ok := m.predictor.PredictedEta(v.ID); ok {
				etas[v.ID] = p.Timestamp
				continue
			}
		}
		m.mu.Lock()
		p, ok := m.lastEta[v.ID]
		m.mu.Unlock()
		if ok {
			etas[v.ID] = p.Timestamp
		}
	}
	return etas
}

// DetectConflicts sweeps the horizon and reconciles the conflict ledger.
// Returns the conflicts open after the sweep, scoped to what the sweep
// observed. Running it twice on an unchanged schedule opens nothing new.
func (m *Manager) DetectConflicts(ctx context.Context, horizon model.Window) []model.Conflict {
	open, _ := m.sweep(ctx, horizon)
	return open
}

func (m *Manager) sweep(ctx context.Context, horizon model.Window) (open, opened []model.Conflict) {
	snap := m.store.Snapshot()
	observed := m.detector.Detect(snap, m.vesselMap(), horizon)
	opened = m.store.ReconcileConflicts(observed, clearableWithin(snap, horizon),
		time.Now(), "cleared by schedule change")

	after := m.store.Snapshot()
	keys := make(map[string]bool, len(observed))
	for _, c := range observed {
		keys[c.Key()] = true
	}
	for _, c := range after.OpenConflicts() {
		if keys[c.Key()] {
			open = append(open, c)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Key() < open[j].Key() })

	m.syncConflictCounts(after, after.OpenConflicts())

	if len(opened) > 0 {
		top := model.SeverityLow
		evs := make([]metrics.ConflictEvent, len(opened))
		for i, c := range opened {
			if c.Severity > top {
				top = c.Severity
			}
			evs[i] = metrics.ConflictEvent{
				Type:     c.Type.String(),
				Severity: c.Severity.String(),
				Time:     c.DetectedAt,
			}
		}
		m.publish(events.ConflictEvent{Opened: opened, OpenNow: len(open), Severity: top})
		if err := m.sink.RecordConflicts(evs); err != nil {
			m.log.Warnf("metrics record failed: %v", err)
		}
		m.log.Warnf("conflict sweep opened %d, %d open in horizon, top severity %s",
			len(opened), len(open), top)
	}
	return open, opened
}

// clearableWithin reports whether a sweep over the horizon had every
// assignment of a conflict in view. A conflict touching a live assignment
// beyond the horizon must stay open: the sweep saw no evidence it cleared.
// Departed or removed assignments never block clearing.
func clearableWithin(snap schedule.Snapshot, horizon model.Window) func(model.Conflict) bool {
	if !horizon.Valid() {
		return nil
	}
	inScope := make(map[string]bool)
	for _, a := range snap.ActiveWithin(horizon.From, horizon.To) {
		inScope[a.ID] = true
	}
	return func(c model.Conflict) bool {
		for _, id := range c.AssignmentIDs {
			if a, ok := snap.Get(id); ok && a.Active() && !inScope[id] {
				return false
			}
		}
		return true
	}
}

// syncConflictCounts mirrors the number of open conflicts touching each
// assignment onto the assignment itself.
func (m *Manager) syncConflictCounts(snap schedule.Snapshot, open []model.Conflict) {
	counts := make(map[string]int)
	for _, c := range open {
		for _, id := range c.AssignmentIDs {
			counts[id]++
		}
	}
	seen := make(map[string]bool, len(counts))
	for id, n := range counts {
		seen[id] = true
		if a, ok := snap.Get(id); ok && a.ConflictCount != n {
			m.setConflictCount(id, n)
		}
	}
	// clear counters on assignments the sweep no longer flags
	for _, id := range m.flaggedAssignments() {
		if !seen[id] {
			m.setConflictCount(id, 0)
		}
	}
}

func (m *Manager) flaggedAssignments() []string {
	snap := m.store.Snapshot()
	var ids []string
	for id, a := range snap.Assignments {
		if a.ConflictCount > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Manager) setConflictCount(id string, n int) {
	if _, err := m.store.Update(id, func(a *model.Assignment) error {
		a.ConflictCount = n
		return nil
	}); err != nil {
		m.log.Warnf("conflict count update for %s failed: %v", id, err)
	}
}

// Reoptimize runs the re-optimization engine for a trigger and publishes the
// outcome. Applied runs already hold the updated schedule when this returns.
func (m *Manager) Reoptimize(ctx context.Context, t reopt.Trigger) (reopt.Result, error) {
	vessels := m.vesselMap()
	vesselSlice := make([]model.Vessel, 0, len(vessels))
	for _, v := range vessels {
		vesselSlice = append(vesselSlice, v)
	}
	res, err := m.reopt.Reoptimize(ctx, t, vessels, m.berthList(), m.predictedEtas(vesselSlice))
	if res.State == reopt.StateApplied {
		m.rebookResources(res.Changes)
	}

	m.publish(events.ReoptEvent{
		Trigger:     t.Kind.String(),
		State:       res.State.String(),
		Changes:     len(res.Changes),
		Improvement: res.Improvement(),
		Elapsed:     res.Elapsed,
		Reason:      res.Reason,
	})
	ids := make([]string, len(res.Changes))
	for i, c := range res.Changes {
		ids[i] = c.AssignmentID
	}
	m.record(ctx, func(s metrics.Sink) error {
		return s.RecordReopt(metrics.ReoptEvent{
			Trigger: t.Kind.String(), State: res.State.String(),
			Changes: len(res.Changes), Improvement: res.Improvement(),
			Elapsed: res.Elapsed, Time: time.Now(),
		})
	}, logging.DecisionRecord{
		Kind:          logging.KindReopt,
		AssignmentIDs: ids,
		Cost:          res.CostAfter,
		Outcome:       res.State.String(),
		Detail:        res.Reason,
	})
	m.log.Infof("reoptimization (%s) finished %s: %d changes, improvement %.1f",
		t.Kind, res.State, len(res.Changes), res.Improvement())
	return res, err
}

// rebookResources moves the physical resource reservations of shifted calls
// onto their new windows, preferring free units over clashing with someone
// else's booking. A shortage keeps the old reservation in place; the next
// conflict sweep flags any real clash that leaves behind.
func (m *Manager) rebookResources(changes []reopt.Change) {
	for _, c := range changes {
		v, err := m.vessel(c.VesselID)
		if err != nil {
			continue
		}
		snap := m.store.Snapshot()
		if len(snap.BookingsFor(c.AssignmentID)) == 0 {
			continue
		}
		allocs, err := m.pickResources(snap, v, c.ToWindow, c.AssignmentID)
		if err != nil {
			m.log.Warnf("resource rebooking for %s kept old windows: %v", c.AssignmentID, err)
			continue
		}
		if err := m.store.Allocate(snap.Version, c.AssignmentID, allocs); err != nil {
			m.log.Warnf("resource rebooking for %s failed: %v", c.AssignmentID, err)
		}
	}
}

// HandleEta folds a fresh estimate into the tracking state and re-optimizes
// when the deviation from the planned window crosses the configured
// thresholds. Reports whether a run was triggered.
func (m *Manager) HandleEta(ctx context.Context, eta prediction.PredictedEta) (bool, reopt.Result, error) {
	m.mu.Lock()
	prev, hadPrev := m.lastEta[eta.VesselID]
	m.lastEta[eta.VesselID] = eta
	m.mu.Unlock()

	snap := m.store.Snapshot()
	a, ok := snap.ActiveForVessel(eta.VesselID)
	if !ok {
		return false, reopt.Result{}, nil
	}

	dev := reopt.EtaDeviation{
		VesselID: eta.VesselID,
		EtaShift: eta.Timestamp.Sub(a.Window.From),
	}
	if hadPrev {
		dev.SpeedDeltaKnots = eta.SpeedKnots - prev.SpeedKnots
		dev.CourseDeltaDeg = courseDelta(eta.CourseDeg, prev.CourseDeg)
	}
	t := reopt.EtaTrigger(dev, time.Now())
	if !m.reopt.ShouldTrigger(t) {
		return false, reopt.Result{}, nil
	}
	m.log.Infof("eta deviation for %s: shift %s, speed delta %.1fkn, course delta %.0f°",
		eta.VesselID, dev.EtaShift, dev.SpeedDeltaKnots, dev.CourseDeltaDeg)
	res, err := m.Reoptimize(ctx, t)
	return true, res, err
}

// courseDelta is the smallest signed angle between two headings.
func courseDelta(a, b float64) float64 {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// Run drives the manager until the context is canceled: periodic conflict
// sweeps over the detection horizon, re-optimization of newly opened High and
// Critical conflicts, and ETA updates from the tracking feed.
func (m *Manager) Run(ctx context.Context, etas <-chan prediction.PredictedEta) error {
	ticker := time.NewTicker(m.cfg.SweepInterval())
	defer ticker.Stop()
	m.log.Infof("engine loop started, sweep every %s over %s",
		m.cfg.SweepInterval(), m.cfg.DetectHorizon())

	for {
		select {
		case <-ctx.Done():
			m.log.Infof("engine loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			horizon := model.NewWindow(now, m.cfg.DetectHorizon())
			_, opened := m.sweep(ctx, horizon)
			for _, c := range opened {
				if c.Severity < model.SeverityHigh {
					continue
				}
				if _, _, err := m.handleConflict(ctx, c, now); err != nil {
					m.log.Errorf("conflict reoptimization failed: %v", err)
				}
			}
		case eta, ok := <-etas:
			if !ok {
				etas = nil
				continue
			}
			if _, _, err := m.HandleEta(ctx, eta); err != nil {
				m.log.Errorf("eta handling for %s failed: %v", eta.VesselID, err)
			}
		}
	}
}

func (m *Manager) handleConflict(ctx context.Context, c model.Conflict, now time.Time) (bool, reopt.Result, error) {
	t := reopt.ConflictTrigger(c, now)
	if !m.reopt.ShouldTrigger(t) {
		return false, reopt.Result{}, nil
	}
	res, err := m.Reoptimize(ctx, t)
	return true, res, err
}
