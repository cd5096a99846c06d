package schedule

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/berthd/core/model"
)

// ErrStaleSnapshot is returned when a commit is attempted against a snapshot
// version that the store has since moved past. The caller must re-fetch a
// snapshot and retry.
var ErrStaleSnapshot = errors.New("schedule: stale snapshot")

// ErrNotFound is returned when the referenced assignment does not exist.
var ErrNotFound = errors.New("schedule: assignment not found")

// MemoryStore is the process-wide schedule: a mutex-guarded table with
// explicit snapshot/commit semantics. All mutations go through the
// single-writer commit path and bump the version counter; readers work on
// consistent copies.
type MemoryStore struct {
	mu          sync.RWMutex
	version     uint64
	assignments map[string]model.Assignment
	resources   []model.ResourceAllocation
	conflicts   map[string]model.Conflict
}

// NewMemoryStore creates an empty schedule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]model.Assignment),
		conflicts:   make(map[string]model.Conflict),
	}
}

// Version returns the current store version.
func (s *MemoryStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a consistent copy of the whole schedule.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Version:     s.version,
		Taken:       time.Now(),
		Assignments: make(map[string]model.Assignment, len(s.assignments)),
		Resources:   append([]model.ResourceAllocation(nil), s.resources...),
		Conflicts:   make(map[string]model.Conflict, len(s.conflicts)),
	}
	for id, a := range s.assignments {
		snap.Assignments[id] = a
	}
	for k, c := range s.conflicts {
		c.AssignmentIDs = append([]string(nil), c.AssignmentIDs...)
		snap.Conflicts[k] = c
	}
	return snap
}

// checkVersion must be called with the write lock held.
func (s *MemoryStore) checkVersion(base uint64) error {
	if base != s.version {
		return fmt.Errorf("%w: base %d, current %d", ErrStaleSnapshot, base, s.version)
	}
	return nil
}

// Put inserts or replaces one assignment if the store still is at base.
func (s *MemoryStore) Put(base uint64, a model.Assignment) error {
	return s.PutAll(base, []model.Assignment{a})
}

// PutAll atomically inserts or replaces a batch of assignments. Either the
// whole batch is applied or nothing is; this is the path re-optimization
// proposals go through.
func (s *MemoryStore) PutAll(base uint64, batch []model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(base); err != nil {
		return err
	}
	for _, a := range batch {
		if a.ID == "" {
			return fmt.Errorf("schedule: assignment without id for vessel %s", a.VesselID)
		}
	}
	for _, a := range batch {
		s.assignments[a.ID] = a
	}
	s.version++
	return nil
}

// Update applies fn to one assignment under the write lock. Lifecycle events
// (arrival, berthing, departure) use this path; they do not carry a base
// version because actual times always win over planning state.
func (s *MemoryStore) Update(id string, fn func(*model.Assignment) error) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(&a); err != nil {
		return model.Assignment{}, err
	}
	s.assignments[id] = a
	if !a.Active() {
		s.releaseResourcesLocked(id)
	}
	s.version++
	return a, nil
}

// Allocate reserves resources for an assignment, replacing any previous
// allocation set for the same assignment.
func (s *MemoryStore) Allocate(base uint64, assignmentID string, allocs []model.ResourceAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(base); err != nil {
		return err
	}
	s.releaseResourcesLocked(assignmentID)
	for _, r := range allocs {
		r.AssignmentID = assignmentID
		s.resources = append(s.resources, r)
	}
	s.version++
	return nil
}

func (s *MemoryStore) releaseResourcesLocked(assignmentID string) {
	kept := s.resources[:0]
	for _, r := range s.resources {
		if r.AssignmentID != assignmentID {
			kept = append(kept, r)
		}
	}
	s.resources = kept
}

// ReconcileConflicts aligns the conflict ledger with the set a detector pass
// observed. Already-open conflicts with the same key are kept (idempotent
// detection); new ones are opened with a fresh id; open conflicts no longer
// observed are resolved with the given action, but only when clearable reports
// the pass could have re-observed them. A horizon-scoped sweep passes a
// predicate rejecting conflicts on assignments beyond its horizon so their
// records stay open; a nil clearable resolves every unobserved conflict.
// It returns the conflicts opened by this call.
func (s *MemoryStore) ReconcileConflicts(observed []model.Conflict, clearable func(model.Conflict) bool, now time.Time, resolution string) []model.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(observed))
	var opened []model.Conflict
	for _, c := range observed {
		key := c.Key()
		seen[key] = struct{}{}
		if existing, ok := s.conflicts[key]; ok && existing.Open() {
			continue
		}
		c.ID = uuid.NewString()
		c.DetectedAt = now
		c.ResolvedAt = nil
		s.conflicts[key] = c
		opened = append(opened, c)
	}
	for key, c := range s.conflicts {
		if !c.Open() {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if clearable != nil && !clearable(c) {
			continue
		}
		c.Resolve(now, resolution)
		s.conflicts[key] = c
	}
	s.version++
	return opened
}

// ResolveConflict closes one open conflict by key.
func (s *MemoryStore) ResolveConflict(key string, now time.Time, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conflicts[key]
	if !ok || !c.Open() {
		return false
	}
	c.Resolve(now, action)
	s.conflicts[key] = c
	s.version++
	return true
}
