package logging

import (
	"context"
	"time"
)

// Decision kinds recorded by the allocation engine.
const (
	KindSuggestion = "suggestion"
	KindCommit     = "commit"
	KindOptimize   = "optimize"
	KindReopt      = "reopt"
	KindLifecycle  = "lifecycle"
)

// DecisionRecord captures one allocation decision and its outcome.
type DecisionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	VesselID  string    `json:"vessel_id,omitempty"`
	BerthID   string    `json:"berth_id,omitempty"`
	// AssignmentIDs names every schedule entry the decision touched.
	AssignmentIDs []string `json:"assignment_ids,omitempty"`
	Score         float64  `json:"score,omitempty"`
	Cost          float64  `json:"cost,omitempty"`
	Outcome       string   `json:"outcome,omitempty"`
	Detail        string   `json:"detail,omitempty"`
	// SnapshotVersion is the schedule version the decision was made against.
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// Query defines filters for retrieving decision records.
type Query struct {
	Start    time.Time
	End      time.Time
	Kind     string
	VesselID string
}

func (q Query) matches(r DecisionRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.VesselID != "" && r.VesselID != q.VesselID {
		return false
	}
	return true
}

// Store persists DecisionRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec DecisionRecord) error
	Query(ctx context.Context, q Query) ([]DecisionRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, DecisionRecord) error { return nil }
func (NopStore) Query(context.Context, Query) ([]DecisionRecord, error) {
	return nil, nil
}
func (NopStore) Close() error { return nil }
