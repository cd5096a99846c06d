package engine

import (
	"sync"

	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/schedule"
)

// SeriesWeather serves blended impact factors from a static forecast series.
// Entries with an empty location apply port-wide; located entries only to the
// matching berth.
type SeriesWeather struct {
	series []model.WeatherSnapshot
	blend  model.WeatherBlend
}

// NewSeriesWeather creates a provider over the given series.
func NewSeriesWeather(series []model.WeatherSnapshot, blend model.WeatherBlend) *SeriesWeather {
	return &SeriesWeather{series: series, blend: blend}
}

// ImpactFactor implements the validator's weather contract.
func (s *SeriesWeather) ImpactFactor(location string, w model.Window) (float64, bool) {
	scoped := make([]model.WeatherSnapshot, 0, len(s.series))
	for _, snap := range s.series {
		if snap.Location == "" || snap.Location == location {
			scoped = append(scoped, snap)
		}
	}
	return model.BlendImpact(scoped, w, s.blend)
}

// DirectoryPool counts free physical resource units against the schedule's
// live reservations. It serves the validator's availability checks from the
// same unit directory the manager books concrete units from.
type DirectoryPool struct {
	store *schedule.MemoryStore

	mu        sync.RWMutex
	directory map[model.ResourceType][]string
}

// NewDirectoryPool creates an empty pool over the store.
func NewDirectoryPool(store *schedule.MemoryStore) *DirectoryPool {
	return &DirectoryPool{store: store, directory: make(map[model.ResourceType][]string)}
}

// Set declares the physical units of one type.
func (p *DirectoryPool) Set(t model.ResourceType, ids []string) {
	p.mu.Lock()
	p.directory[t] = append([]string(nil), ids...)
	p.mu.Unlock()
}

// Available implements the validator's resource contract: units of the type
// with no reservation overlapping the window.
func (p *DirectoryPool) Available(t model.ResourceType, w model.Window) int {
	p.mu.RLock()
	ids := p.directory[t]
	p.mu.RUnlock()
	if len(ids) == 0 {
		return 0
	}
	snap := p.store.Snapshot()
	busy := make(map[string]bool)
	for _, ra := range snap.Resources {
		if ra.Type == t && ra.Window.Overlaps(w) {
			busy[ra.ResourceID] = true
		}
	}
	free := 0
	for _, id := range ids {
		if !busy[id] {
			free++
		}
	}
	return free
}
