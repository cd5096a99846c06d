package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/harborops/berthd/core/conflict"
	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/engine"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/prediction"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
	"github.com/harborops/berthd/core/suggest"
)

var scenarioStart = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)

func etaEstimate(vesselID string, eta time.Time) prediction.PredictedEta {
	return prediction.PredictedEta{VesselID: vesselID, Timestamp: eta, Confidence: 0.9, SpeedKnots: 12}
}

type openSea struct{}

func (openSea) ImpactFactor(string, model.Window) (float64, bool) { return 0.95, true }

// RunScenario plans the scenario's arrivals through a full engine and checks
// the outcome against the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	store := schedule.NewMemoryStore()
	lock := schedule.NewHorizonLock()
	pool := engine.NewDirectoryPool(store)
	pool.Set(model.ResourcePilot, []string{"pilot-1", "pilot-2", "pilot-3", "pilot-4"})
	pool.Set(model.ResourceTug, []string{"tug-1", "tug-2", "tug-3", "tug-4", "tug-5", "tug-6"})
	pool.Set(model.ResourceCrane, []string{"crane-1", "crane-2", "crane-3", "crane-4", "crane-5", "crane-6", "crane-7", "crane-8"})

	validator := constraint.New(constraint.Config{}, nil, openSea{}, pool)
	scorer := scoring.New(scoring.Config{}, nil)
	opt := optimizer.New(optimizer.Config{}, validator, scorer, nil)
	mgr, err := engine.New(engine.Config{}, engine.Deps{
		Store:     store,
		Lock:      lock,
		Validator: validator,
		Scorer:    scorer,
		Suggester: suggest.New(validator, scorer),
		Optimizer: opt,
		Detector:  conflict.New(constraint.Config{}, nil, nil),
		Reopt:     reopt.New(reopt.Config{}, store, lock, opt, nil),
	})
	if err != nil {
		t.Fatalf("scenario %s: engine: %v", sc.Name, err)
	}
	defer func() { _ = mgr.Close() }()

	for _, bd := range sc.Berths {
		b, err := bd.ToModel()
		if err != nil {
			t.Fatalf("scenario %s: %v", sc.Name, err)
		}
		if err := mgr.RegisterBerth(b); err != nil {
			t.Fatalf("scenario %s: %v", sc.Name, err)
		}
	}
	etas := make(map[string]time.Time, len(sc.Vessels))
	for _, vd := range sc.Vessels {
		v, err := vd.ToModel()
		if err != nil {
			t.Fatalf("scenario %s: %v", sc.Name, err)
		}
		if err := mgr.RegisterVessel(v); err != nil {
			t.Fatalf("scenario %s: %v", sc.Name, err)
		}
		etas[v.ID] = vd.Eta(scenarioStart)
	}

	ctx := context.Background()
	horizon := model.NewWindow(scenarioStart, time.Duration(sc.HorizonHours)*time.Hour)

	// seed the tracking state so the planner sees the declared arrivals
	for id, eta := range etas {
		if _, _, err := mgr.HandleEta(ctx, etaEstimate(id, eta)); err != nil {
			t.Fatalf("scenario %s: eta %s: %v", sc.Name, id, err)
		}
	}
	res, err := mgr.OptimizeGlobal(ctx, horizon, nil)
	if err != nil {
		t.Fatalf("scenario %s: optimize: %v", sc.Name, err)
	}

	if len(res.Assignments) != sc.Expected.Placed {
		t.Errorf("scenario %s: expected %d placed, got %d", sc.Name, sc.Expected.Placed, len(res.Assignments))
	}
	if len(res.Unassigned) != sc.Expected.Unassigned {
		t.Errorf("scenario %s: expected %d unassigned, got %d (%+v)",
			sc.Name, sc.Expected.Unassigned, len(res.Unassigned), res.Unassigned)
	}
	open := mgr.DetectConflicts(ctx, horizon)
	if len(open) != sc.Expected.Conflicts {
		t.Errorf("scenario %s: expected %d conflicts, got %d (%+v)",
			sc.Name, sc.Expected.Conflicts, len(open), open)
	}
	for _, a := range res.Assignments {
		if eta, ok := etas[a.VesselID]; ok && a.Window.From.Before(eta) {
			t.Errorf("scenario %s: %s berthed before its arrival", sc.Name, a.VesselID)
		}
	}
}
