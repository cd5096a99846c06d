package schedule

import (
	"sort"
	"time"

	"github.com/harborops/berthd/core/model"
)

// Snapshot is an immutable copy of the schedule at one store version.
// Validator, scorer, detector and optimizer all read snapshots; they never
// observe a half-applied commit.
type Snapshot struct {
	Version     uint64
	Taken       time.Time
	Assignments map[string]model.Assignment
	Resources   []model.ResourceAllocation
	Conflicts   map[string]model.Conflict // keyed by Conflict.Key()
}

// Get returns the assignment with the given id.
func (s Snapshot) Get(id string) (model.Assignment, bool) {
	a, ok := s.Assignments[id]
	return a, ok
}

// AtBerth returns all assignments at a berth sorted by window start.
func (s Snapshot) AtBerth(berthID string) []model.Assignment {
	var res []model.Assignment
	for _, a := range s.Assignments {
		if a.BerthID == berthID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Window.From.Equal(res[j].Window.From) {
			return res[i].ID < res[j].ID
		}
		return res[i].Window.From.Before(res[j].Window.From)
	})
	return res
}

// ActiveAtBerth returns the active assignments at a berth sorted by start.
func (s Snapshot) ActiveAtBerth(berthID string) []model.Assignment {
	all := s.AtBerth(berthID)
	res := all[:0]
	for _, a := range all {
		if a.Active() {
			res = append(res, a)
		}
	}
	return res
}

// ActiveForVessel returns the active assignment of a vessel, if any.
func (s Snapshot) ActiveForVessel(vesselID string) (model.Assignment, bool) {
	for _, a := range s.Assignments {
		if a.VesselID == vesselID && a.Active() {
			return a, true
		}
	}
	return model.Assignment{}, false
}

// ActiveWithin returns active assignments whose window intersects [from, to),
// sorted by window start then id.
func (s Snapshot) ActiveWithin(from, to time.Time) []model.Assignment {
	var res []model.Assignment
	for _, a := range s.Assignments {
		if a.Active() && a.Window.Intersects(from, to) {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Window.From.Equal(res[j].Window.From) {
			return res[i].ID < res[j].ID
		}
		return res[i].Window.From.Before(res[j].Window.From)
	})
	return res
}

// AllocationsFor returns the resource allocations of one resource sorted by
// window start.
func (s Snapshot) AllocationsFor(resourceID string) []model.ResourceAllocation {
	var res []model.ResourceAllocation
	for _, r := range s.Resources {
		if r.ResourceID == resourceID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Window.From.Before(res[j].Window.From)
	})
	return res
}

// BookingsFor returns the resource allocations held by one assignment.
func (s Snapshot) BookingsFor(assignmentID string) []model.ResourceAllocation {
	var res []model.ResourceAllocation
	for _, r := range s.Resources {
		if r.AssignmentID == assignmentID {
			res = append(res, r)
		}
	}
	return res
}

// ResourceIDs returns the distinct resource ids present, sorted.
func (s Snapshot) ResourceIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, r := range s.Resources {
		if _, ok := seen[r.ResourceID]; !ok {
			seen[r.ResourceID] = struct{}{}
			ids = append(ids, r.ResourceID)
		}
	}
	sort.Strings(ids)
	return ids
}

// OpenConflicts returns the unresolved conflicts sorted by key.
func (s Snapshot) OpenConflicts() []model.Conflict {
	var res []model.Conflict
	for _, c := range s.Conflicts {
		if c.Open() {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key() < res[j].Key() })
	return res
}

// EarliestAvailability returns the earliest instant at or after t at which
// the berth has no active assignment, honouring the buffer.
func (s Snapshot) EarliestAvailability(berthID string, t time.Time, buffer time.Duration) time.Time {
	earliest := t
	for _, a := range s.ActiveAtBerth(berthID) {
		if !a.Window.To.Add(buffer).After(earliest) {
			continue
		}
		if a.Window.From.Add(-buffer).After(earliest) {
			break
		}
		earliest = a.Window.To.Add(buffer)
	}
	return earliest
}
