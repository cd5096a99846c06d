package conflict

import (
	"testing"
	"time"

	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time { return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute) }

func scheduled(id, vesselID, berthID string, from, to time.Time) model.Assignment {
	return model.Assignment{
		ID: id, VesselID: vesselID, BerthID: berthID,
		Window: model.Window{From: from, To: to}, Status: model.StatusScheduled,
	}
}

func vesselSet(vs ...model.Vessel) map[string]model.Vessel {
	m := make(map[string]model.Vessel, len(vs))
	for _, v := range vs {
		m[v.ID] = v
	}
	return m
}

func snapOf(t *testing.T, assignments ...model.Assignment) schedule.Snapshot {
	t.Helper()
	store := schedule.NewMemoryStore()
	if err := store.PutAll(store.Version(), assignments); err != nil {
		t.Fatal(err)
	}
	return store.Snapshot()
}

func only(t *testing.T, conflicts []model.Conflict, typ model.ConflictType) model.Conflict {
	t.Helper()
	var found []model.Conflict
	for _, c := range conflicts {
		if c.Type == typ {
			found = append(found, c)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one %s conflict, got %d in %+v", typ, len(found), conflicts)
	}
	return found[0]
}

func TestDetectTimeOverlap(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	snap := snapOf(t,
		scheduled("a1", "v1", "b2", at(10, 0), at(14, 0)),
		scheduled("a2", "v2", "b2", at(13, 0), at(17, 0)),
	)
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)

	c := only(t, d.Detect(snap, vessels, model.Window{}), model.ConflictTimeOverlap)
	if c.Severity != model.SeverityCritical {
		t.Fatalf("overlap severity = %s, want critical", c.Severity)
	}
	if len(c.AssignmentIDs) != 2 || c.AssignmentIDs[0] != "a1" || c.AssignmentIDs[1] != "a2" {
		t.Fatalf("overlap must name both assignments, got %v", c.AssignmentIDs)
	}
}

func TestDetectBufferViolation(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	// 20 minutes between calls, 30 required: buffer violation, no overlap
	snap := snapOf(t,
		scheduled("a1", "v1", "b1", at(8, 0), at(12, 0)),
		scheduled("a2", "v2", "b1", at(12, 20), at(16, 0)),
	)
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)

	conflicts := d.Detect(snap, vessels, model.Window{})
	c := only(t, conflicts, model.ConflictBuffer)
	if c.Severity != model.SeverityLow {
		t.Fatalf("buffer severity = %s, want low", c.Severity)
	}
	for _, got := range conflicts {
		if got.Type == model.ConflictTimeOverlap {
			t.Fatal("a pure buffer violation must not also report an overlap")
		}
	}
}

func TestDetectRespectsBuffer(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	snap := snapOf(t,
		scheduled("a1", "v1", "b1", at(8, 0), at(12, 0)),
		scheduled("a2", "v2", "b1", at(12, 30), at(16, 0)),
	)
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)
	if got := d.Detect(snap, vessels, model.Window{}); len(got) != 0 {
		t.Fatalf("a full buffer gap is clean, got %+v", got)
	}
}

func TestDetectResourceClash(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	store := schedule.NewMemoryStore()
	err := store.PutAll(store.Version(), []model.Assignment{
		scheduled("a1", "v1", "b1", at(8, 0), at(12, 0)),
		scheduled("a2", "v2", "b2", at(10, 0), at(14, 0)),
	})
	if err != nil {
		t.Fatal(err)
	}
	// the same tug booked for both calls at once
	for _, id := range []string{"a1", "a2"} {
		err := store.Allocate(store.Version(), id, []model.ResourceAllocation{{
			ResourceID: "tug-7", Type: model.ResourceTug,
			Window: model.Window{From: at(9, 0), To: at(11, 0)},
		}})
		if err != nil {
			t.Fatal(err)
		}
	}
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)

	c := only(t, d.Detect(store.Snapshot(), vessels, model.Window{}), model.ConflictResourceClash)
	if c.Severity != model.SeverityHigh {
		t.Fatalf("resource clash severity = %s, want high", c.Severity)
	}
}

func TestDetectTidalConflict(t *testing.T) {
	tides := model.TideTable{
		{Timestamp: at(6, 0), Height: 4.2, Type: model.TideHigh},
	}
	d := New(constraint.Config{}, tides, nil)
	snap := snapOf(t, scheduled("a1", "deep", "b1", at(11, 0), at(19, 0)))
	vessels := vesselSet(model.Vessel{ID: "deep", Draft: 13.5, Priority: model.PriorityNormal})

	c := only(t, d.Detect(snap, vessels, model.Window{}), model.ConflictTidal)
	if c.Severity != model.SeverityHigh {
		t.Fatalf("tidal severity = %s, want high", c.Severity)
	}
	if len(c.AssignmentIDs) != 1 || c.AssignmentIDs[0] != "a1" {
		t.Fatalf("tidal conflict names the single call, got %v", c.AssignmentIDs)
	}
}

func TestDetectTidalOverrideSuppresses(t *testing.T) {
	d := New(constraint.Config{}, model.TideTable{{Timestamp: at(6, 0), Type: model.TideHigh}}, nil)
	a := scheduled("a1", "deep", "b1", at(11, 0), at(19, 0))
	a.TideOverride = true
	snap := snapOf(t, a)
	vessels := vesselSet(model.Vessel{ID: "deep", Draft: 13.5, Priority: model.PriorityNormal})

	if got := d.Detect(snap, vessels, model.Window{}); len(got) != 0 {
		t.Fatalf("an explicit override must suppress the tidal conflict, got %+v", got)
	}
}

func TestDetectPriorityViolation(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	// a priority call queued right behind a normal one
	snap := snapOf(t,
		scheduled("a1", "slowpoke", "b1", at(8, 0), at(12, 0)),
		scheduled("a2", "express", "b1", at(12, 10), at(16, 0)),
	)
	vessels := vesselSet(
		model.Vessel{ID: "slowpoke", Priority: model.PriorityLow},
		model.Vessel{ID: "express", Priority: model.PriorityHigh},
	)

	conflicts := d.Detect(snap, vessels, model.Window{})
	c := only(t, conflicts, model.ConflictPriority)
	if c.Severity != model.SeverityMedium {
		t.Fatalf("priority severity = %s, want medium", c.Severity)
	}
	if c.AssignmentIDs[0] != "a2" || c.AssignmentIDs[1] != "a1" {
		t.Fatalf("the blocked priority call must come first, got %v", c.AssignmentIDs)
	}
	// the 10-minute gap also trips the buffer rule
	only(t, conflicts, model.ConflictBuffer)
}

func TestDetectHorizonScoping(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	snap := snapOf(t,
		scheduled("a1", "v1", "b1", at(10, 0), at(14, 0)),
		scheduled("a2", "v2", "b1", at(13, 0), at(17, 0)),
	)
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)

	past := model.Window{From: day.AddDate(0, 0, -2), To: day.AddDate(0, 0, -1)}
	if got := d.Detect(snap, vessels, past); len(got) != 0 {
		t.Fatalf("conflicts outside the horizon must be ignored, got %+v", got)
	}
}

func TestDetectIdempotentThroughReconcile(t *testing.T) {
	d := New(constraint.Config{}, nil, nil)
	store := schedule.NewMemoryStore()
	err := store.PutAll(store.Version(), []model.Assignment{
		scheduled("a1", "v1", "b1", at(10, 0), at(14, 0)),
		scheduled("a2", "v2", "b1", at(13, 0), at(17, 0)),
	})
	if err != nil {
		t.Fatal(err)
	}
	vessels := vesselSet(
		model.Vessel{ID: "v1", Priority: model.PriorityNormal},
		model.Vessel{ID: "v2", Priority: model.PriorityNormal},
	)

	now := at(18, 0)
	first := store.ReconcileConflicts(d.Detect(store.Snapshot(), vessels, model.Window{}), nil, now, "schedule changed")
	if len(first) != 1 {
		t.Fatalf("expected one conflict opened on the first sweep, got %d", len(first))
	}
	second := store.ReconcileConflicts(d.Detect(store.Snapshot(), vessels, model.Window{}), nil, now.Add(time.Minute), "schedule changed")
	if len(second) != 0 {
		t.Fatalf("an unchanged schedule must not open new records, got %+v", second)
	}
	if got := store.Snapshot().OpenConflicts(); len(got) != 1 || got[0].ID != first[0].ID {
		t.Fatalf("the original record must stay the sole open conflict, got %+v", got)
	}

	// moving the colliding call clears the record on the next sweep
	a2, err := store.Update("a2", func(a *model.Assignment) error {
		a.Window = model.Window{From: at(14, 30), To: at(18, 0)}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if a2.Window.From != at(14, 30) {
		t.Fatalf("update not applied: %+v", a2.Window)
	}
	opened := store.ReconcileConflicts(d.Detect(store.Snapshot(), vessels, model.Window{}), nil, now.Add(2*time.Minute), "schedule changed")
	if len(opened) != 0 {
		t.Fatalf("moved call must not open conflicts, got %+v", opened)
	}
	if got := store.Snapshot().OpenConflicts(); len(got) != 0 {
		t.Fatalf("stale conflict record left open after reconcile: %+v", got)
	}
}
