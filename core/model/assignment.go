package model

import (
	"fmt"
	"time"
)

// AssignmentStatus tracks the lifecycle of a schedule entry.
type AssignmentStatus int

const (
	StatusScheduled AssignmentStatus = iota
	StatusApproaching
	StatusBerthed
	StatusDeparted
	StatusCancelled
)

// String returns a human-readable representation of the status.
func (s AssignmentStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusApproaching:
		return "approaching"
	case StatusBerthed:
		return "berthed"
	case StatusDeparted:
		return "departed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Active reports whether the status still occupies berth time. Only active
// assignments participate in the no-overlap invariant.
func (s AssignmentStatus) Active() bool {
	return s == StatusScheduled || s == StatusApproaching || s == StatusBerthed
}

// Assignment is one committed schedule entry binding a vessel to a berth for
// a window. It is created by accepting a suggestion or by the global
// optimizer, and mutated by arrival events and re-optimization.
type Assignment struct {
	ID            string
	VesselID      string
	BerthID       string
	Window        Window // [ETA, ETD)
	ATA           *time.Time
	ATB           *time.Time
	ATD           *time.Time
	Status        AssignmentStatus
	Score         float64
	ConflictCount int
	TideOverride  bool // explicit operator override of the tidal rule
}

// Active reports whether the assignment currently occupies berth time.
func (a Assignment) Active() bool {
	return a.Status.Active()
}

// transition validates a status change against the lifecycle order.
func (a Assignment) transition(to AssignmentStatus) error {
	ok := false
	switch to {
	case StatusApproaching:
		ok = a.Status == StatusScheduled
	case StatusBerthed:
		ok = a.Status == StatusApproaching || a.Status == StatusScheduled
	case StatusDeparted:
		ok = a.Status == StatusBerthed
	case StatusCancelled:
		ok = a.Status.Active()
	}
	if !ok {
		return fmt.Errorf("assignment %s: illegal transition %s -> %s", a.ID, a.Status, to)
	}
	return nil
}

// RecordArrival marks the vessel as approaching and stores the actual time
// of arrival at the pilot station.
func (a *Assignment) RecordArrival(t time.Time) error {
	if err := a.transition(StatusApproaching); err != nil {
		return err
	}
	a.Status = StatusApproaching
	a.ATA = &t
	return nil
}

// RecordBerthing marks the vessel as berthed at time t.
func (a *Assignment) RecordBerthing(t time.Time) error {
	if err := a.transition(StatusBerthed); err != nil {
		return err
	}
	a.Status = StatusBerthed
	a.ATB = &t
	return nil
}

// RecordDeparture closes the call at time t.
func (a *Assignment) RecordDeparture(t time.Time) error {
	if err := a.transition(StatusDeparted); err != nil {
		return err
	}
	a.Status = StatusDeparted
	a.ATD = &t
	return nil
}

// Cancel voids an active assignment, releasing its berth time.
func (a *Assignment) Cancel() error {
	if err := a.transition(StatusCancelled); err != nil {
		return err
	}
	a.Status = StatusCancelled
	return nil
}
