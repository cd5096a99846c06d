package main

import (
	"math/rand"
	"time"
)

// Track is one simulated inbound vessel. Each tick the track either holds its
// plan or drifts: a speed change shifts the ETA, a course change adds noise.
type Track struct {
	VesselID   string
	Draft      float64
	Eta        time.Time
	SpeedKnots float64
	CourseDeg  float64
	Confidence float64

	driftRate float64
}

// Estimate is the JSON shape emitted per tick, matching what the engine's
// tracking feed consumes.
type Estimate struct {
	VesselID   string    `json:"vessel_id"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	SpeedKnots float64   `json:"speed_knots"`
	CourseDeg  float64   `json:"course_deg"`
}

// Step advances the track one tick and returns the current estimate.
func (t *Track) Step(rng *rand.Rand) Estimate {
	t.Confidence = 0.85 + rng.Float64()*0.1
	if rng.Float64() < t.driftRate {
		speedDelta := (rng.Float64() - 0.5) * 6
		t.SpeedKnots += speedDelta
		if t.SpeedKnots < 4 {
			t.SpeedKnots = 4
		}
		// slower means later: scale the remaining passage accordingly
		shift := time.Duration(-speedDelta / t.SpeedKnots * 3 * float64(time.Hour))
		t.Eta = t.Eta.Add(shift)
		t.CourseDeg += (rng.Float64() - 0.5) * 40
		for t.CourseDeg < 0 {
			t.CourseDeg += 360
		}
		for t.CourseDeg >= 360 {
			t.CourseDeg -= 360
		}
		t.Confidence -= 0.2
	}
	return Estimate{
		VesselID:   t.VesselID,
		Timestamp:  t.Eta,
		Confidence: t.Confidence,
		SpeedKnots: t.SpeedKnots,
		CourseDeg:  t.CourseDeg,
	}
}
