package constraint

import (
	"testing"
	"time"

	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
)

type stubWeather struct {
	factor float64
	ok     bool
}

func (s stubWeather) ImpactFactor(string, model.Window) (float64, bool) { return s.factor, s.ok }

type stubPool struct {
	pilots, tugs, cranes int
}

func (s stubPool) Available(t model.ResourceType, _ model.Window) int {
	switch t {
	case model.ResourcePilot:
		return s.pilots
	case model.ResourceTug:
		return s.tugs
	default:
		return s.cranes
	}
}

func testBerth() model.Berth {
	return model.Berth{
		ID: "b2", Name: "East Quay 2", Length: 300, MaxDraft: 14, MaxBeam: 45,
		Cranes: 3, Type: model.TypeContainer, Active: true,
	}
}

func testVessel() model.Vessel {
	return model.Vessel{
		ID: "v1", Name: "Aurelia", LOA: 280, Beam: 40, Draft: 11,
		Type: model.TypeContainer, Priority: model.PriorityNormal, CargoVolume: 2000,
	}
}

func fixture() (*Validator, schedule.Snapshot, model.Window) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tides := model.TideTable{
		{Timestamp: t0.Add(-time.Hour), Type: model.TideHigh, Height: 4.1},
		{Timestamp: t0.Add(5 * time.Hour), Type: model.TideLow, Height: 0.8},
		{Timestamp: t0.Add(11 * time.Hour), Type: model.TideHigh, Height: 4.3},
	}
	v := New(Config{}, tides, stubWeather{factor: 0.9, ok: true}, stubPool{pilots: 2, tugs: 3, cranes: 4})
	return v, schedule.NewMemoryStore().Snapshot(), model.Window{From: t0, To: t0.Add(8 * time.Hour)}
}

func TestValidatorFeasibleBaseline(t *testing.T) {
	v, snap, w := fixture()
	res := v.Check(snap, testVessel(), testBerth(), w, "")
	if !res.Feasible() {
		t.Fatalf("expected feasible, got violations %+v", res.Violations)
	}
	if res.Checked != res.Satisfied {
		t.Fatalf("checked %d != satisfied %d on a feasible result", res.Checked, res.Satisfied)
	}
	if res.DataDegraded {
		t.Fatal("all feeds present, result must not be degraded")
	}
}

func TestValidatorPhysicalFitBoundary(t *testing.T) {
	v, snap, w := fixture()
	berth := testBerth()

	vessel := testVessel()
	vessel.LOA = berth.Length // exactly at the limit passes
	if res := v.Check(snap, vessel, berth, w, ""); !res.Feasible() {
		t.Fatalf("loa == length must pass, got %+v", res.Violations)
	}

	vessel.LOA = berth.Length + 0.01
	res := v.Check(snap, vessel, berth, w, "")
	if res.Feasible() {
		t.Fatal("loa just over length must fail")
	}
	if res.First().RuleID != RuleFitLOA {
		t.Fatalf("expected %s, got %s", RuleFitLOA, res.First().RuleID)
	}

	vessel = testVessel()
	vessel.Draft = berth.MaxDraft + 0.01
	res = v.Check(snap, vessel, berth, w, "")
	if res.Feasible() || res.First().RuleID != RuleFitDraft {
		t.Fatalf("expected draft violation, got %+v", res.Violations)
	}
}

func TestValidatorInactiveBerthShortCircuits(t *testing.T) {
	v, snap, w := fixture()
	berth := testBerth()
	berth.Active = false
	res := v.Check(snap, testVessel(), berth, w, "")
	if res.Feasible() {
		t.Fatal("inactive berth must be infeasible")
	}
	if res.Checked != 1 {
		t.Fatalf("inactive berth must short-circuit, checked %d rules", res.Checked)
	}
	if res.First().RuleID != RuleBerthInactive {
		t.Fatalf("expected %s, got %s", RuleBerthInactive, res.First().RuleID)
	}
}

func TestValidatorOverlapWithBuffer(t *testing.T) {
	v, _, w := fixture()
	store := schedule.NewMemoryStore()
	occupying := model.Assignment{
		ID: "a1", VesselID: "other", BerthID: "b2",
		Window: model.Window{From: w.To.Add(10 * time.Minute), To: w.To.Add(6 * time.Hour)},
	}
	if err := store.Put(store.Version(), occupying); err != nil {
		t.Fatal(err)
	}
	res := v.Check(store.Snapshot(), testVessel(), testBerth(), w, "")
	if res.Feasible() {
		t.Fatal("10 minute gap violates the 30 minute buffer")
	}
	if res.First().RuleID != RuleTimeOverlap {
		t.Fatalf("expected %s, got %s", RuleTimeOverlap, res.First().RuleID)
	}

	// excluding the assignment under evaluation clears the check
	res = v.Check(store.Snapshot(), testVessel(), testBerth(), w, "a1")
	if !res.Feasible() {
		t.Fatalf("exclusion of a1 must pass, got %+v", res.Violations)
	}

	// a departed assignment no longer blocks the window
	if _, err := store.Update("a1", func(a *model.Assignment) error { return a.Cancel() }); err != nil {
		t.Fatal(err)
	}
	if res := v.Check(store.Snapshot(), testVessel(), testBerth(), w, ""); !res.Feasible() {
		t.Fatalf("cancelled assignment must not block, got %+v", res.Violations)
	}
}

func TestValidatorMaintenanceWindow(t *testing.T) {
	v, snap, w := fixture()
	berth := testBerth()
	berth.Maintenance = []model.MaintenanceWindow{
		{Window: model.Window{From: w.From.Add(2 * time.Hour), To: w.From.Add(3 * time.Hour)}, Reason: "fender repair"},
	}
	res := v.Check(snap, testVessel(), berth, w, "")
	if res.Feasible() || res.First().RuleID != RuleMaintenance {
		t.Fatalf("expected maintenance violation, got %+v", res.Violations)
	}
}

func TestValidatorTidalRule(t *testing.T) {
	v, snap, w := fixture()
	vessel := testVessel()
	vessel.Draft = 13 // deep draft, nearest high tide is 1h before eta

	res := v.Check(snap, vessel, testBerth(), w, "")
	if !res.Feasible() {
		t.Fatalf("high tide within tolerance must pass, got %+v", res.Violations)
	}

	// shift eta so the nearest high tide is 4h away
	late := model.Window{From: w.From.Add(3 * time.Hour), To: w.To.Add(3 * time.Hour)}
	res = v.Check(snap, vessel, testBerth(), late, "")
	if res.Feasible() || res.First().RuleID != RuleTidalWindow {
		t.Fatalf("expected tide wait violation, got %+v", res.Violations)
	}

	// no tide data at all fails closed and flags degradation
	noTides := New(Config{}, nil, stubWeather{factor: 0.9, ok: true}, stubPool{2, 3, 4})
	res = noTides.Check(snap, vessel, testBerth(), w, "")
	if res.Feasible() || !res.DataDegraded {
		t.Fatalf("missing tide series must fail closed and degrade, got %+v", res)
	}
}

func TestValidatorWeatherFloor(t *testing.T) {
	_, snap, w := fixture()
	unsafe := New(Config{}, nil, stubWeather{factor: 0.5, ok: true}, stubPool{2, 3, 4})
	berth := testBerth()
	berth.Exposure = model.ExposureExposed
	res := unsafe.Check(snap, testVessel(), berth, w, "")
	if res.Feasible() || res.First().RuleID != RuleWeatherUnsafe {
		t.Fatalf("factor at floor must fail on an exposed berth, got %+v", res.Violations)
	}

	// sheltered berth tolerates the same factor
	res = unsafe.Check(snap, testVessel(), testBerth(), w, "")
	if !res.Feasible() {
		t.Fatalf("sheltered berth at the floor must pass, got %+v", res.Violations)
	}

	// missing weather data substitutes the conservative default and degrades
	missing := New(Config{}, nil, stubWeather{ok: false}, stubPool{2, 3, 4})
	res = missing.Check(snap, testVessel(), testBerth(), w, "")
	if !res.Feasible() || !res.DataDegraded {
		t.Fatalf("missing weather must degrade but pass on a sheltered berth, got %+v", res)
	}
}

func TestValidatorResourceAvailability(t *testing.T) {
	_, snap, w := fixture()
	v := New(Config{}, nil, stubWeather{factor: 0.9, ok: true}, stubPool{pilots: 1, tugs: 1, cranes: 4})
	vessel := testVessel() // loa 280 needs 2 tugs
	res := v.Check(snap, vessel, testBerth(), w, "")
	if res.Feasible() || res.First().RuleID != RuleResourceTug {
		t.Fatalf("expected tug shortage, got %+v", res.Violations)
	}
}
