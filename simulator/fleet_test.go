package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestGenerateFleet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	fleet := GenerateFleet(FleetConfig{Size: 50, SpreadHours: 24, DriftRate: 0.5, DeepDraftPct: 0.3}, rng, now)
	if len(fleet) != 50 {
		t.Fatalf("expected 50 tracks, got %d", len(fleet))
	}
	deep := 0
	for _, tr := range fleet {
		if tr.VesselID == "" || tr.SpeedKnots < 10 || tr.SpeedKnots > 18 {
			t.Fatalf("implausible track %+v", tr)
		}
		if tr.Eta.Before(now) || tr.Eta.After(now.Add(24*time.Hour)) {
			t.Fatalf("eta outside spread: %s", tr.Eta)
		}
		if tr.Draft > 12 {
			deep++
		}
	}
	if deep == 0 {
		t.Fatal("expected some deep-draft vessels at 30%")
	}

	if GenerateFleet(FleetConfig{}, rng, now) != nil {
		t.Fatal("zero size must yield no fleet")
	}
}

func TestTrackStepDrifts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tr := &Track{VesselID: "ves0001", Eta: now.Add(12 * time.Hour), SpeedKnots: 14, CourseDeg: 90, driftRate: 1}

	origEta := tr.Eta
	est := tr.Step(rng)
	if est.VesselID != "ves0001" {
		t.Fatalf("estimate names wrong vessel: %s", est.VesselID)
	}
	if est.Timestamp.Equal(origEta) {
		t.Fatal("a forced drift must move the eta")
	}
	if tr.SpeedKnots < 4 {
		t.Fatalf("speed floor violated: %f", tr.SpeedKnots)
	}
	if tr.CourseDeg < 0 || tr.CourseDeg >= 360 {
		t.Fatalf("course not normalized: %f", tr.CourseDeg)
	}
	if est.Confidence > 0.8 {
		t.Fatalf("drifted estimate must lose confidence, got %f", est.Confidence)
	}

	stable := &Track{VesselID: "ves0002", Eta: now, SpeedKnots: 12, driftRate: 0}
	if got := stable.Step(rng); !got.Timestamp.Equal(now) {
		t.Fatal("zero drift rate must hold the eta")
	}
}
