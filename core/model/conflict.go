package model

import (
	"sort"
	"strings"
	"time"
)

// ConflictType classifies a schedule violation.
type ConflictType int

const (
	ConflictTimeOverlap ConflictType = iota
	ConflictResourceClash
	ConflictTidal
	ConflictPriority
	ConflictBuffer
)

// String returns a human-readable representation of the conflict type.
func (t ConflictType) String() string {
	switch t {
	case ConflictTimeOverlap:
		return "time_overlap"
	case ConflictResourceClash:
		return "resource_clash"
	case ConflictTidal:
		return "tidal_conflict"
	case ConflictPriority:
		return "priority_violation"
	case ConflictBuffer:
		return "buffer_violation"
	default:
		return "unknown"
	}
}

// Severity grades how urgent a conflict is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// SeverityFor maps a conflict type to its fixed severity.
func SeverityFor(t ConflictType) Severity {
	switch t {
	case ConflictTimeOverlap:
		return SeverityCritical
	case ConflictResourceClash, ConflictTidal:
		return SeverityHigh
	case ConflictPriority:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Conflict records one violated schedule invariant. Affected assignments are
// referenced by id only, never as a live object graph.
type Conflict struct {
	ID            string
	Type          ConflictType
	Severity      Severity
	AssignmentIDs []string
	Detail        string
	DetectedAt    time.Time
	ResolvedAt    *time.Time
	Resolution    string
}

// Key identifies a conflict by type and affected pair regardless of the order
// in which the detector visited the assignments. Re-running detection must
// not open a second record with the same key.
func (c Conflict) Key() string {
	ids := append([]string(nil), c.AssignmentIDs...)
	sort.Strings(ids)
	return c.Type.String() + ":" + strings.Join(ids, "+")
}

// Open reports whether the conflict is still unresolved.
func (c Conflict) Open() bool {
	return c.ResolvedAt == nil
}

// Resolve closes the conflict with the given action.
func (c *Conflict) Resolve(t time.Time, action string) {
	c.ResolvedAt = &t
	c.Resolution = action
}
