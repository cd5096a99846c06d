package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
)

// Detector scans a schedule snapshot for violated invariants. It shares the
// validator's thresholds so a violation the validator would reject at commit
// time can never slip past a detector sweep. Detection is a pure function of
// the snapshot: re-running it on an unchanged schedule yields the same set,
// and the store reconciles records by key so no duplicates are ever opened.
type Detector struct {
	cfg   constraint.Config
	tides model.TideTable
	log   logger.Logger
}

// New creates a Detector.
func New(cfg constraint.Config, tides model.TideTable, log logger.Logger) *Detector {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Detector{cfg: cfg, tides: tides, log: log}
}

// Detect returns one conflict per violated invariant among the active
// assignments intersecting the horizon. A zero horizon scans everything.
// Returned conflicts carry no id; the store assigns one when the record is
// first opened.
func (d *Detector) Detect(snap schedule.Snapshot, vessels map[string]model.Vessel, horizon model.Window) []model.Conflict {
	var scope []model.Assignment
	if horizon.Valid() {
		scope = snap.ActiveWithin(horizon.From, horizon.To)
	} else {
		for _, a := range snap.Assignments {
			if a.Status.Active() {
				scope = append(scope, a)
			}
		}
	}

	now := time.Now().UTC()
	var out []model.Conflict
	out = append(out, d.berthSweep(scope, vessels, now)...)
	out = append(out, d.resourceSweep(snap, scope, now)...)
	out = append(out, d.tidalScan(scope, vessels, now)...)

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	if len(out) > 0 {
		d.log.Debugf("detector found %d conflicts over %d assignments", len(out), len(scope))
	}
	return out
}

// berthSweep sorts each berth's assignments by start time and sweeps adjacent
// windows for overlap, buffer and priority violations.
func (d *Detector) berthSweep(scope []model.Assignment, vessels map[string]model.Vessel, now time.Time) []model.Conflict {
	buffer := d.cfg.Buffer()
	byBerth := make(map[string][]model.Assignment)
	for _, a := range scope {
		byBerth[a.BerthID] = append(byBerth[a.BerthID], a)
	}

	var out []model.Conflict
	for berthID, calls := range byBerth {
		sort.Slice(calls, func(i, j int) bool {
			if calls[i].Window.From.Equal(calls[j].Window.From) {
				return calls[i].ID < calls[j].ID
			}
			return calls[i].Window.From.Before(calls[j].Window.From)
		})
		for i := 0; i < len(calls); i++ {
			for j := i + 1; j < len(calls); j++ {
				earlier, later := calls[i], calls[j]
				gap := earlier.Window.Gap(later.Window)
				if gap >= buffer {
					break // sorted by start: later calls only get further away
				}
				switch {
				case earlier.Window.Overlaps(later.Window):
					out = append(out, conflictRecord(model.ConflictTimeOverlap, now,
						fmt.Sprintf("windows overlap at berth %s", berthID),
						earlier.ID, later.ID))
				default:
					out = append(out, conflictRecord(model.ConflictBuffer, now,
						fmt.Sprintf("only %s between calls at berth %s, %s required", gap, berthID, buffer),
						earlier.ID, later.ID))
				}
				if c, ok := d.priorityViolation(earlier, later, vessels, now, berthID); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// priorityViolation reports a higher-priority vessel queued behind a
// lower-priority one in an overlapping or near-overlapping window. The
// higher-priority assignment is listed first so the record reads as
// "blocked by".
func (d *Detector) priorityViolation(earlier, later model.Assignment, vessels map[string]model.Vessel, now time.Time, berthID string) (model.Conflict, bool) {
	ve, okE := vessels[earlier.VesselID]
	vl, okL := vessels[later.VesselID]
	if !okE || !okL {
		return model.Conflict{}, false
	}
	// lower Priority value means more important
	if vl.Priority >= ve.Priority || vl.Priority != model.PriorityHigh {
		return model.Conflict{}, false
	}
	c := conflictRecord(model.ConflictPriority, now,
		fmt.Sprintf("priority vessel %s queued behind %s at berth %s", vl.ID, ve.ID, berthID),
		later.ID, earlier.ID)
	return c, true
}

// resourceSweep applies the same pairwise-disjoint invariant per physical
// resource.
func (d *Detector) resourceSweep(snap schedule.Snapshot, scope []model.Assignment, now time.Time) []model.Conflict {
	inScope := make(map[string]bool, len(scope))
	for _, a := range scope {
		inScope[a.ID] = true
	}
	byResource := make(map[string][]model.ResourceAllocation)
	for _, ra := range snap.Resources {
		if inScope[ra.AssignmentID] {
			byResource[ra.ResourceID] = append(byResource[ra.ResourceID], ra)
		}
	}

	var out []model.Conflict
	for resourceID, allocs := range byResource {
		sort.Slice(allocs, func(i, j int) bool {
			if allocs[i].Window.From.Equal(allocs[j].Window.From) {
				return allocs[i].AssignmentID < allocs[j].AssignmentID
			}
			return allocs[i].Window.From.Before(allocs[j].Window.From)
		})
		for i := 0; i < len(allocs); i++ {
			for j := i + 1; j < len(allocs); j++ {
				if !allocs[i].Window.Overlaps(allocs[j].Window) {
					break
				}
				if allocs[i].AssignmentID == allocs[j].AssignmentID {
					continue
				}
				out = append(out, conflictRecord(model.ConflictResourceClash, now,
					fmt.Sprintf("%s %s double-allocated", allocs[i].Type, resourceID),
					allocs[i].AssignmentID, allocs[j].AssignmentID))
			}
		}
	}
	return out
}

// tidalScan checks every deep-draft call without an explicit override against
// the tide series.
func (d *Detector) tidalScan(scope []model.Assignment, vessels map[string]model.Vessel, now time.Time) []model.Conflict {
	var out []model.Conflict
	for _, a := range scope {
		v, ok := vessels[a.VesselID]
		if !ok || !v.DeepDraft(d.cfg.DeepDraftMeters) || a.TideOverride {
			continue
		}
		high, found := d.tides.NearestHighTide(a.Window.From)
		if !found {
			out = append(out, conflictRecord(model.ConflictTidal, now,
				fmt.Sprintf("deep-draft vessel %s has no tide data covering arrival", v.ID), a.ID))
			continue
		}
		dist := a.Window.From.Sub(high.Timestamp)
		if dist < 0 {
			dist = -dist
		}
		if dist > d.cfg.TideTolerance() {
			out = append(out, conflictRecord(model.ConflictTidal, now,
				fmt.Sprintf("deep-draft vessel %s arrives %s from the nearest high tide", v.ID, dist.Round(time.Minute)), a.ID))
		}
	}
	return out
}

func conflictRecord(t model.ConflictType, now time.Time, detail string, assignmentIDs ...string) model.Conflict {
	return model.Conflict{
		Type:          t,
		Severity:      model.SeverityFor(t),
		AssignmentIDs: assignmentIDs,
		Detail:        detail,
		DetectedAt:    now,
	}
}
