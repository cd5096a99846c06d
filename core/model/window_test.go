package model

import (
	"testing"
	"time"
)

func TestWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Window{From: base, To: base.Add(4 * time.Hour)}

	cases := []struct {
		name   string
		other  Window
		expect bool
	}{
		{"inside", Window{From: base.Add(time.Hour), To: base.Add(2 * time.Hour)}, true},
		{"partial", Window{From: base.Add(3 * time.Hour), To: base.Add(7 * time.Hour)}, true},
		{"touching end", Window{From: base.Add(4 * time.Hour), To: base.Add(6 * time.Hour)}, false},
		{"disjoint", Window{From: base.Add(5 * time.Hour), To: base.Add(6 * time.Hour)}, false},
	}
	for _, c := range cases {
		if got := a.Overlaps(c.other); got != c.expect {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.expect)
		}
	}
}

func TestWindowOverlapsWithBuffer(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Window{From: base, To: base.Add(4 * time.Hour)}
	// 20 minutes apart, 30 minute buffer required
	b := Window{From: base.Add(4*time.Hour + 20*time.Minute), To: base.Add(8 * time.Hour)}
	if !a.OverlapsWithBuffer(b, 30*time.Minute) {
		t.Fatal("expected buffer violation for a 20 minute gap")
	}
	if a.Overlaps(b) {
		t.Fatal("plain overlap must not trigger")
	}
	c := Window{From: base.Add(5 * time.Hour), To: base.Add(8 * time.Hour)}
	if a.OverlapsWithBuffer(c, 30*time.Minute) {
		t.Fatal("one hour gap satisfies a 30 minute buffer")
	}
}

func TestWindowGap(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Window{From: base, To: base.Add(time.Hour)}
	b := Window{From: base.Add(90 * time.Minute), To: base.Add(2 * time.Hour)}
	if got := a.Gap(b); got != 30*time.Minute {
		t.Fatalf("gap = %v, want 30m", got)
	}
	if got := b.Gap(a); got != 30*time.Minute {
		t.Fatalf("gap must be symmetric, got %v", got)
	}
	if got := a.Gap(a); got >= 0 {
		t.Fatalf("overlapping windows must report a negative gap, got %v", got)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	now := time.Now()
	a := Assignment{ID: "a1", VesselID: "v1", BerthID: "b1", Status: StatusScheduled}
	if err := a.RecordArrival(now); err != nil {
		t.Fatalf("arrival: %v", err)
	}
	if err := a.RecordBerthing(now.Add(time.Hour)); err != nil {
		t.Fatalf("berthing: %v", err)
	}
	if err := a.RecordDeparture(now.Add(10 * time.Hour)); err != nil {
		t.Fatalf("departure: %v", err)
	}
	if a.Active() {
		t.Fatal("departed assignment must not be active")
	}
	if err := a.Cancel(); err == nil {
		t.Fatal("cancelling a departed assignment must fail")
	}
}

func TestConflictKeyOrderIndependent(t *testing.T) {
	a := Conflict{Type: ConflictTimeOverlap, AssignmentIDs: []string{"x", "y"}}
	b := Conflict{Type: ConflictTimeOverlap, AssignmentIDs: []string{"y", "x"}}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
	}
}

func TestBlendImpact(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w := Window{From: base, To: base.Add(3 * time.Hour)}
	series := []WeatherSnapshot{
		{Timestamp: base.Add(30 * time.Minute), ImpactFactor: 1.0},
		{Timestamp: base.Add(90 * time.Minute), ImpactFactor: 0.6},
		{Timestamp: base.Add(5 * time.Hour), ImpactFactor: 0.5}, // outside
	}
	worst, ok := BlendImpact(series, w, BlendWorst)
	if !ok || worst != 0.6 {
		t.Fatalf("worst blend = %v (%v), want 0.6", worst, ok)
	}
	avg, ok := BlendImpact(series, w, BlendAverage)
	if !ok || avg != 0.8 {
		t.Fatalf("average blend = %v (%v), want 0.8", avg, ok)
	}
	if _, ok := BlendImpact(nil, w, BlendWorst); ok {
		t.Fatal("empty series must report no coverage")
	}
}

func TestVesselTypeCompatibility(t *testing.T) {
	if !TypeContainer.CompatibleWith(TypeContainer) {
		t.Fatal("exact match must be compatible")
	}
	if !TypeBulk.CompatibleWith(TypeGeneral) {
		t.Fatal("general berths accept bulk carriers")
	}
	if TypeGeneral.CompatibleWith(TypeTanker) {
		t.Fatal("general vessels must not berth at tanker terminals")
	}
	if TypeContainer.CompatibleWith(TypeTanker) {
		t.Fatal("container vessels must not berth at tanker terminals")
	}
}
