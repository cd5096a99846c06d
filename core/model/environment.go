package model

import (
	"math"
	"time"
)

// TideType marks a tidal extreme.
type TideType int

const (
	TideHigh TideType = iota
	TideLow
)

// TidalWindow is one entry of the read-only tide reference series.
type TidalWindow struct {
	Timestamp time.Time
	Height    float64 // metres above chart datum
	Type      TideType
}

// TideTable is an ordered series of tidal extremes.
type TideTable []TidalWindow

// NearestHighTide returns the high-tide entry closest to t. The second return
// value is false when the table contains no high tides.
func (tt TideTable) NearestHighTide(t time.Time) (TidalWindow, bool) {
	var best TidalWindow
	found := false
	bestDist := time.Duration(math.MaxInt64)
	for _, w := range tt {
		if w.Type != TideHigh {
			continue
		}
		d := t.Sub(w.Timestamp)
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist, found = w, d, true
		}
	}
	return best, found
}

// WeatherSnapshot is one entry of the read-only weather reference series.
// ImpactFactor is derived upstream from wind, waves and visibility and is
// clamped to [0.5, 1.0]: 1.0 means unimpeded operations, 0.5 extreme weather.
type WeatherSnapshot struct {
	Timestamp    time.Time
	Location     string
	WindSpeed    float64 // knots
	WaveHeight   float64 // metres
	Visibility   float64 // nautical miles
	ImpactFactor float64
}

// ClampImpact forces a factor into the valid [0.5, 1.0] range.
func ClampImpact(f float64) float64 {
	if f < 0.5 {
		return 0.5
	}
	if f > 1.0 {
		return 1.0
	}
	return f
}

// WeatherBlend selects how multiple snapshots covering one window combine
// into a single impact factor.
type WeatherBlend int

const (
	// BlendWorst takes the minimum factor over the window (conservative).
	BlendWorst WeatherBlend = iota
	// BlendAverage takes the arithmetic mean over the window.
	BlendAverage
)

// BlendImpact combines the impact factors of all snapshots intersecting w.
// The second return value is false when no snapshot covers the window.
func BlendImpact(series []WeatherSnapshot, w Window, mode WeatherBlend) (float64, bool) {
	var sum float64
	worst := 1.0
	n := 0
	for _, s := range series {
		if !w.Contains(s.Timestamp) {
			continue
		}
		f := ClampImpact(s.ImpactFactor)
		sum += f
		if f < worst {
			worst = f
		}
		n++
	}
	if n == 0 {
		return 0, false
	}
	if mode == BlendAverage {
		return sum / float64(n), true
	}
	return worst, true
}
