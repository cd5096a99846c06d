// Package metrics defines interfaces and implementations for collecting
// allocation metrics. Sinks like PromSink and InfluxSink record events such
// as served suggestions or optimizer runs and can be combined with
// NewMultiSink. The factory helpers return a MultiSink automatically when
// multiple sinks are configured.
package metrics

import "time"

// SuggestionEvent captures one served suggestion set.
type SuggestionEvent struct {
	VesselID     string
	Served       int
	TopScore     float64
	DataDegraded bool
	Time         time.Time
}

// CommitEvent captures one assignment entering the schedule.
type CommitEvent struct {
	VesselID        string
	BerthID         string
	Score           float64
	SnapshotVersion uint64
	Time            time.Time
}

// ConflictEvent captures one conflict opened by a detector sweep.
type ConflictEvent struct {
	Type     string
	Severity string
	Time     time.Time
}

// OptimizeEvent captures one optimizer run.
type OptimizeEvent struct {
	Vessels    int
	Placed     int
	Iterations int
	Optimal    bool
	Cost       float64
	Elapsed    time.Duration
	Time       time.Time
}

// ReoptEvent captures one re-optimization run outcome.
type ReoptEvent struct {
	Trigger     string
	State       string
	Changes     int
	Improvement float64
	Elapsed     time.Duration
	Time        time.Time
}

// LifecycleEvent captures a recorded arrival, berthing or departure.
type LifecycleEvent struct {
	Stage string
	// Delay is the signed gap between the actual and planned time.
	Delay time.Duration
	Time  time.Time
}

// Sink records allocation events for observability purposes.
type Sink interface {
	RecordSuggestion(ev SuggestionEvent) error
	RecordCommit(ev CommitEvent) error
	RecordConflicts(evs []ConflictEvent) error
	RecordOptimize(ev OptimizeEvent) error
	RecordReopt(ev ReoptEvent) error
	RecordLifecycle(ev LifecycleEvent) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSuggestion(SuggestionEvent) error  { return nil }
func (NopSink) RecordCommit(CommitEvent) error          { return nil }
func (NopSink) RecordConflicts([]ConflictEvent) error   { return nil }
func (NopSink) RecordOptimize(OptimizeEvent) error      { return nil }
func (NopSink) RecordReopt(ReoptEvent) error            { return nil }
func (NopSink) RecordLifecycle(LifecycleEvent) error    { return nil }
