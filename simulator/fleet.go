package main

import (
	"fmt"
	"math/rand"
	"time"
)

// FleetConfig holds parameters for bulk traffic generation.
type FleetConfig struct {
	Size int
	// SpreadHours distributes the initial ETAs over this many hours.
	SpreadHours float64
	// DriftRate is the per-tick probability that a track picks up a new
	// speed and course deviation.
	DriftRate float64
	// DeepDraftPct is the share of generated vessels drawing over 12m.
	DeepDraftPct float64
}

// GenerateFleet creates Size inbound tracks with IDs ves0001..vesNNNN.
func GenerateFleet(cfg FleetConfig, rng *rand.Rand, now time.Time) []*Track {
	if cfg.Size <= 0 {
		return nil
	}
	ts := make([]*Track, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		draft := 8 + rng.Float64()*3
		if cfg.DeepDraftPct > 0 && rng.Float64() < cfg.DeepDraftPct {
			draft = 12.5 + rng.Float64()*3
		}
		eta := now.Add(time.Duration(rng.Float64() * cfg.SpreadHours * float64(time.Hour)))
		ts[i] = &Track{
			VesselID:   fmt.Sprintf("ves%04d", i+1),
			Draft:      draft,
			Eta:        eta,
			SpeedKnots: 10 + rng.Float64()*8,
			CourseDeg:  rng.Float64() * 360,
			driftRate:  cfg.DriftRate,
		}
	}
	return ts
}
