package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborops/berthd/core/conflict"
	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/prediction"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
	"github.com/harborops/berthd/core/suggest"
	"github.com/harborops/berthd/internal/eventbus"
)

type calmWeather struct{}

func (calmWeather) ImpactFactor(string, model.Window) (float64, bool) { return 0.95, true }

type bigPool struct{}

func (bigPool) Available(model.ResourceType, model.Window) int { return 10 }

func t0() time.Time {
	return time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	store := schedule.NewMemoryStore()
	lock := schedule.NewHorizonLock()
	validator := constraint.New(constraint.Config{}, nil, calmWeather{}, bigPool{})
	scorer := scoring.New(scoring.Config{}, nil)
	opt := optimizer.New(optimizer.Config{}, validator, scorer, nil)

	m, err := New(Config{}, Deps{
		Store:     store,
		Lock:      lock,
		Validator: validator,
		Scorer:    scorer,
		Suggester: suggest.New(validator, scorer),
		Optimizer: opt,
		Detector:  conflict.New(constraint.Config{}, nil, nil),
		Reopt:     reopt.New(reopt.Config{}, store, lock, opt, nil),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func registerPort(t *testing.T, m *Manager, berthCount int) {
	t.Helper()
	names := []string{"b1", "b2", "b3", "b4"}
	for i := 0; i < berthCount; i++ {
		require.NoError(t, m.RegisterBerth(model.Berth{
			ID: names[i], Length: 250, MaxDraft: 12, Cranes: 3,
			Type: model.TypeContainer, Active: true,
		}))
	}
	m.RegisterResources(model.ResourcePilot, []string{"pilot-1", "pilot-2", "pilot-3"})
	m.RegisterResources(model.ResourceTug, []string{"tug-1", "tug-2", "tug-3", "tug-4"})
	m.RegisterResources(model.ResourceCrane, []string{"crane-1", "crane-2", "crane-3", "crane-4"})
}

func registerVessel(t *testing.T, m *Manager, id string) {
	t.Helper()
	require.NoError(t, m.RegisterVessel(model.Vessel{
		ID: id, LOA: 180, Beam: 30, Draft: 9, Type: model.TypeContainer,
		Priority: model.PriorityNormal, CargoVolume: 1000,
	}))
}

func suggestAndCommit(t *testing.T, m *Manager, vesselID string, eta time.Time) model.Assignment {
	t.Helper()
	suggs, err := m.SuggestBerths(context.Background(), vesselID, eta, 3)
	require.NoError(t, err)
	require.NotEmpty(t, suggs)
	a, err := m.CommitAssignment(context.Background(), suggs[0].ID)
	require.NoError(t, err)
	return a
}

func TestValidateAssignmentUnknownEntities(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	w := model.NewWindow(t0(), 6*time.Hour)

	_, err := m.ValidateAssignment("ghost", "b1", w)
	require.Error(t, err)
	_, err = m.ValidateAssignment("v1", "ghost", w)
	require.Error(t, err)

	res, err := m.ValidateAssignment("v1", "b1", w)
	require.NoError(t, err)
	require.True(t, res.Feasible(), "empty berth must accept a fitting vessel: %+v", res.Violations)
}

func TestSuggestThenCommit(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 2)
	registerVessel(t, m, "v1")

	a := suggestAndCommit(t, m, "v1", t0())
	require.Equal(t, "v1", a.VesselID)
	require.Equal(t, model.StatusScheduled, a.Status)
	require.False(t, a.Window.From.Before(t0()))

	snap := m.store.Snapshot()
	got, ok := snap.Get(a.ID)
	require.True(t, ok, "committed assignment must be in the schedule")
	require.Equal(t, a.BerthID, got.BerthID)

	// pilot and tugs reserved alongside the schedule entry
	require.NotEmpty(t, snap.BookingsFor(a.ID))

	// the committed suggestion is spent
	_, err := m.CommitAssignment(context.Background(), a.ID)
	require.Error(t, err)
}

func TestCommitRejectsStaleSuggestion(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	registerVessel(t, m, "v2")

	ctx := context.Background()
	s1, err := m.SuggestBerths(ctx, "v1", t0(), 1)
	require.NoError(t, err)
	s2, err := m.SuggestBerths(ctx, "v2", t0(), 1)
	require.NoError(t, err)
	require.Equal(t, s1[0].Window, s2[0].Window, "both vessels want the same slot on the only berth")

	_, err = m.CommitAssignment(ctx, s1[0].ID)
	require.NoError(t, err)
	_, err = m.CommitAssignment(ctx, s2[0].ID)
	require.ErrorIs(t, err, schedule.ErrStaleSnapshot)
}

func TestCommitReportsResourceShortage(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 2)
	// one tug for a vessel class that needs one, then a second vessel in
	// the same window finds the directory exhausted
	m.RegisterResources(model.ResourceTug, []string{"tug-1"})
	registerVessel(t, m, "v1")
	registerVessel(t, m, "v2")

	suggestAndCommit(t, m, "v1", t0())
	suggs, err := m.SuggestBerths(context.Background(), "v2", t0(), 1)
	require.NoError(t, err)
	_, err = m.CommitAssignment(context.Background(), suggs[0].ID)
	require.ErrorContains(t, err, "tug")
}

func TestLifecycleFeedsHistory(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	ctx := context.Background()

	a := suggestAndCommit(t, m, "v1", t0())
	_, err := m.RecordArrival(ctx, a.ID, a.Window.From.Add(30*time.Minute))
	require.NoError(t, err)
	_, err = m.RecordBerthing(ctx, a.ID, a.Window.From.Add(time.Hour))
	require.NoError(t, err)
	final, err := m.RecordDeparture(ctx, a.ID, a.Window.To)
	require.NoError(t, err)
	require.Equal(t, model.StatusDeparted, final.Status)

	// the closed call grades the berth for future scoring
	score, ok := m.history.BerthScore(model.TypeContainer, a.BerthID)
	require.True(t, ok)
	require.Greater(t, score, 0.0)
}

func TestOptimizeGlobalPlacesPendingFleet(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 2)
	for _, id := range []string{"v1", "v2", "v3"} {
		registerVessel(t, m, id)
	}
	horizon := model.NewWindow(t0(), 48*time.Hour)

	res, err := m.OptimizeGlobal(context.Background(), horizon, nil)
	require.NoError(t, err)
	require.Len(t, res.Assignments, 3)
	require.Empty(t, res.Unassigned)

	snap := m.store.Snapshot()
	for _, a := range res.Assignments {
		_, ok := snap.Get(a.ID)
		require.True(t, ok, "optimized plan must be committed")
	}
	// a second run has nothing left to place
	res, err = m.OptimizeGlobal(context.Background(), horizon, nil)
	require.NoError(t, err)
	require.Empty(t, res.Assignments)
}

func TestDetectConflictsIsIdempotent(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	registerVessel(t, m, "v2")

	// force an overlap behind the validator's back
	w := model.NewWindow(t0(), 6*time.Hour)
	require.NoError(t, m.store.Put(m.store.Version(), model.Assignment{
		ID: "a1", VesselID: "v1", BerthID: "b1", Window: w, Status: model.StatusScheduled,
	}))
	require.NoError(t, m.store.Put(m.store.Version(), model.Assignment{
		ID: "a2", VesselID: "v2", BerthID: "b1", Window: model.NewWindow(t0().Add(3*time.Hour), 6*time.Hour),
		Status: model.StatusScheduled,
	}))

	horizon := model.NewWindow(t0().Add(-time.Hour), 48*time.Hour)
	open := m.DetectConflicts(context.Background(), horizon)
	require.NotEmpty(t, open)
	firstKeys := make([]string, len(open))
	for i, c := range open {
		firstKeys[i] = c.Key()
	}

	again := m.DetectConflicts(context.Background(), horizon)
	require.Len(t, again, len(open), "re-detection must not duplicate conflicts")
	for i, c := range again {
		require.Equal(t, firstKeys[i], c.Key())
	}

	// the flagged assignments carry their open conflict count
	snap := m.store.Snapshot()
	a1, _ := snap.Get("a1")
	require.Positive(t, a1.ConflictCount)

	// resolving the overlap clears both ledger and counters
	_, err := m.store.Update("a2", func(a *model.Assignment) error {
		a.Window = model.NewWindow(t0().Add(7*time.Hour), 6*time.Hour)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, m.DetectConflicts(context.Background(), horizon))
	a1, _ = m.store.Snapshot().Get("a1")
	require.Zero(t, a1.ConflictCount)
}

func TestSweepKeepsConflictsBeyondHorizonOpen(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	registerVessel(t, m, "v2")

	// overlapping calls three days out, past the periodic sweep's horizon
	far := t0().Add(72 * time.Hour)
	require.NoError(t, m.store.Put(m.store.Version(), model.Assignment{
		ID: "a1", VesselID: "v1", BerthID: "b1",
		Window: model.NewWindow(far, 6*time.Hour), Status: model.StatusScheduled,
	}))
	require.NoError(t, m.store.Put(m.store.Version(), model.Assignment{
		ID: "a2", VesselID: "v2", BerthID: "b1",
		Window: model.NewWindow(far.Add(2*time.Hour), 6*time.Hour), Status: model.StatusScheduled,
	}))

	wide := model.NewWindow(t0(), 96*time.Hour)
	require.NotEmpty(t, m.DetectConflicts(context.Background(), wide))

	// a narrower sweep has no view of the overlap; the ledger must keep it
	narrow := model.NewWindow(t0(), 48*time.Hour)
	require.Empty(t, m.DetectConflicts(context.Background(), narrow),
		"nothing inside the narrow horizon is in conflict")

	open := m.store.Snapshot().OpenConflicts()
	require.Len(t, open, 1, "conflict beyond the swept horizon must stay open")
	require.Nil(t, open[0].ResolvedAt)
	a1, _ := m.store.Snapshot().Get("a1")
	require.Positive(t, a1.ConflictCount, "flag must survive a sweep that cannot see the conflict")

	// the violation clears for real: the next covering sweep closes the record
	_, err := m.store.Update("a2", func(a *model.Assignment) error {
		a.Window = model.NewWindow(far.Add(7*time.Hour), 6*time.Hour)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, m.DetectConflicts(context.Background(), wide))
	require.Empty(t, m.store.Snapshot().OpenConflicts())
}

func TestHandleEtaTriggersOnLargeShift(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 2)
	registerVessel(t, m, "v1")
	a := suggestAndCommit(t, m, "v1", t0())
	ctx := context.Background()

	triggered, _, err := m.HandleEta(ctx, prediction.PredictedEta{
		VesselID: "v1", Timestamp: a.Window.From.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.False(t, triggered, "a 10 minute drift is below the threshold")

	triggered, res, err := m.HandleEta(ctx, prediction.PredictedEta{
		VesselID: "v1", Timestamp: a.Window.From.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, triggered)
	require.NotEqual(t, reopt.StateIdle, res.State)

	// a vessel without a schedule entry never triggers
	triggered, _, err = m.HandleEta(ctx, prediction.PredictedEta{
		VesselID: "ghost", Timestamp: t0(),
	})
	require.NoError(t, err)
	require.False(t, triggered)
}

func TestCourseDeltaWrapsAround(t *testing.T) {
	require.InDelta(t, 20, courseDelta(10, 350), 1e-9)
	require.InDelta(t, -20, courseDelta(350, 10), 1e-9)
	require.InDelta(t, 0, courseDelta(180, 180), 1e-9)
}

func TestSuggestionEventsOnBus(t *testing.T) {
	store := schedule.NewMemoryStore()
	lock := schedule.NewHorizonLock()
	validator := constraint.New(constraint.Config{}, nil, calmWeather{}, bigPool{})
	scorer := scoring.New(scoring.Config{}, nil)
	opt := optimizer.New(optimizer.Config{}, validator, scorer, nil)
	bus := eventbus.New()

	m, err := New(Config{}, Deps{
		Store:     store,
		Lock:      lock,
		Validator: validator,
		Scorer:    scorer,
		Suggester: suggest.New(validator, scorer),
		Optimizer: opt,
		Detector:  conflict.New(constraint.Config{}, nil, nil),
		Reopt:     reopt.New(reopt.Config{}, store, lock, opt, nil),
		Bus:       bus,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	sub := bus.Subscribe()

	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	_, err = m.SuggestBerths(context.Background(), "v1", t0(), 1)
	require.NoError(t, err)

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no suggestion event published")
	}
}

func TestNoFeasibleBerthSurfacesRetryHint(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 1)
	registerVessel(t, m, "v1")
	require.NoError(t, m.RegisterVessel(model.Vessel{
		ID: "giant", LOA: 400, Beam: 60, Draft: 16, Type: model.TypeContainer,
		Priority: model.PriorityNormal, CargoVolume: 5000,
	}))

	_, err := m.SuggestBerths(context.Background(), "giant", t0(), 1)
	var nf *suggest.NoFeasibleBerthError
	require.ErrorAs(t, err, &nf)
}

// TestScheduleNeverDoubleBooked drives random suggest/commit/eta/optimize
// sequences and checks after every mutation that no berth holds two active
// assignments whose windows collide within the buffer, and no physical
// resource is reserved twice for the same instant.
func TestScheduleNeverDoubleBooked(t *testing.T) {
	m := testManager(t)
	registerPort(t, m, 2)
	vesselIDs := []string{"v1", "v2", "v3", "v4", "v5", "v6"}
	for _, id := range vesselIDs {
		registerVessel(t, m, id)
	}

	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()
	buffer := m.validator.Config().Buffer()

	checkInvariants := func() {
		t.Helper()
		snap := m.store.Snapshot()
		var active []model.Assignment
		for _, a := range snap.Assignments {
			if a.Status != model.StatusDeparted && a.Status != model.StatusCancelled {
				active = append(active, a)
			}
		}
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				a, b := active[i], active[j]
				if a.BerthID == b.BerthID && a.Window.OverlapsWithBuffer(b.Window, buffer) {
					t.Fatalf("berth %s double-booked: %s %v vs %s %v",
						a.BerthID, a.ID, a.Window, b.ID, b.Window)
				}
			}
		}
		for i := 0; i < len(snap.Resources); i++ {
			for j := i + 1; j < len(snap.Resources); j++ {
				ra, rb := snap.Resources[i], snap.Resources[j]
				if ra.ResourceID == rb.ResourceID && ra.AssignmentID != rb.AssignmentID &&
					ra.Window.Overlaps(rb.Window) {
					t.Fatalf("resource %s double-allocated to %s and %s",
						ra.ResourceID, ra.AssignmentID, rb.AssignmentID)
				}
			}
		}
	}

	for step := 0; step < 60; step++ {
		id := vesselIDs[rng.Intn(len(vesselIDs))]
		eta := t0().Add(time.Duration(rng.Intn(36)) * time.Hour)

		switch rng.Intn(4) {
		case 0, 1:
			suggs, err := m.SuggestBerths(ctx, id, eta, 2)
			if err != nil {
				var nf *suggest.NoFeasibleBerthError
				require.True(t, errors.As(err, &nf), "unexpected suggest failure: %v", err)
				break
			}
			if _, err := m.CommitAssignment(ctx, suggs[0].ID); err != nil {
				require.ErrorIs(t, err, schedule.ErrStaleSnapshot)
			}
		case 2:
			_, _, err := m.HandleEta(ctx, prediction.PredictedEta{VesselID: id, Timestamp: eta})
			require.NoError(t, err)
		case 3:
			horizon := model.NewWindow(t0(), 72*time.Hour)
			_, err := m.OptimizeGlobal(ctx, horizon, nil)
			require.NoError(t, err)
		}
		checkInvariants()
	}
}
