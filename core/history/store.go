package history

import (
	"context"
	"sync"
	"time"

	"github.com/harborops/berthd/core/model"
)

// CallRecord captures one completed vessel call for performance tracking.
type CallRecord struct {
	VesselID    string           `json:"vessel_id"`
	VesselClass model.VesselType `json:"vessel_class"`
	BerthID     string           `json:"berth_id"`
	Planned     model.Window     `json:"planned"`
	ATA         *time.Time       `json:"ata,omitempty"`
	ATD         *time.Time       `json:"atd,omitempty"`
	ClosedAt    time.Time        `json:"closed_at"`
}

// PerformanceScore grades a completed call in [0, 1]: 1 for an on-time call
// with no overstay, decaying with arrival delay and berth overstay.
func (r CallRecord) PerformanceScore() float64 {
	score := 1.0
	if r.ATA != nil {
		delay := r.ATA.Sub(r.Planned.From)
		if delay < 0 {
			delay = 0
		}
		score -= 0.5 * clamp01(delay.Hours()/6)
	}
	if r.ATD != nil {
		overstay := r.ATD.Sub(r.Planned.To)
		if overstay < 0 {
			overstay = 0
		}
		score -= 0.5 * clamp01(overstay.Hours()/6)
	}
	return clamp01(score)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Store persists completed calls and aggregates berth performance per vessel
// class. BerthScore implements the scoring engine's HistoryProvider contract.
type Store interface {
	RecordCall(ctx context.Context, rec CallRecord) error
	BerthScore(class model.VesselType, berthID string) (float64, bool)
	Close() error
}

type aggregate struct {
	n   int
	sum float64
}

// MemoryStore keeps aggregates in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]aggregate
}

// NewMemoryStore creates an empty history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]aggregate{}}
}

func key(class model.VesselType, berthID string) string {
	return class.String() + "@" + berthID
}

// RecordCall folds the call into the class/berth aggregate.
func (s *MemoryStore) RecordCall(_ context.Context, rec CallRecord) error {
	s.mu.Lock()
	agg := s.data[key(rec.VesselClass, rec.BerthID)]
	agg.n++
	agg.sum += rec.PerformanceScore()
	s.data[key(rec.VesselClass, rec.BerthID)] = agg
	s.mu.Unlock()
	return nil
}

// BerthScore returns the mean performance of the class at the berth.
func (s *MemoryStore) BerthScore(class model.VesselType, berthID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.data[key(class, berthID)]
	if !ok || agg.n == 0 {
		return 0, false
	}
	return agg.sum / float64(agg.n), true
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
