package events

import "github.com/harborops/berthd/core/model"

// CommitEvent is published when an assignment enters the schedule.
type CommitEvent struct {
	Assignment model.Assignment
	// Replanned is true when the commit came out of a re-optimization run
	// rather than an accepted suggestion.
	Replanned bool
}

// LifecycleEvent is published for each recorded arrival, berthing or
// departure. Stage is "arrival", "berthing" or "departure".
type LifecycleEvent struct {
	AssignmentID string
	VesselID     string
	Stage        string
}
