package events

import "time"

// ReoptEvent is published when a re-optimization run finishes. State mirrors
// the engine outcome: "applied", "proposed", "no_change_needed" or "failed".
type ReoptEvent struct {
	Trigger     string
	State       string
	Changes     int
	Improvement float64
	Elapsed     time.Duration
	Reason      string
}
