package model

import (
	"fmt"
	"time"
)

// ExposureClass describes how vulnerable a berth is to weather.
type ExposureClass int

const (
	ExposureSheltered ExposureClass = iota
	ExposureModerate
	ExposureExposed
)

// String returns a human-readable representation of the exposure class.
func (e ExposureClass) String() string {
	switch e {
	case ExposureSheltered:
		return "sheltered"
	case ExposureModerate:
		return "moderate"
	case ExposureExposed:
		return "exposed"
	default:
		return "unknown"
	}
}

// MaintenanceWindow blocks a berth for the given interval.
type MaintenanceWindow struct {
	Window Window
	Reason string
}

// Berth describes a physical berth. Berth records are read-only to the
// allocation core; maintenance scheduling mutates them externally.
type Berth struct {
	ID              string
	Name            string
	Length          float64 // metres
	MaxDraft        float64 // metres
	MaxBeam         float64 // metres, 0 when unrestricted
	Cranes          int
	Type            VesselType
	Active          bool
	Exposure        ExposureClass
	Maintenance     []MaintenanceWindow // ordered, non-overlapping
	PriorityCapable bool
}

// Validate checks that the berth dimensions are sound and the maintenance
// windows are ordered and disjoint.
func (b Berth) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("berth id is required")
	}
	if b.Length <= 0 || b.MaxDraft <= 0 {
		return fmt.Errorf("berth %s: length and max draft must be positive", b.ID)
	}
	for i := 1; i < len(b.Maintenance); i++ {
		prev, cur := b.Maintenance[i-1].Window, b.Maintenance[i].Window
		if cur.From.Before(prev.To) {
			return fmt.Errorf("berth %s: maintenance windows must be ordered and disjoint", b.ID)
		}
	}
	return nil
}

// UnderMaintenance returns the first maintenance window intersecting w, if any.
func (b Berth) UnderMaintenance(w Window) (MaintenanceWindow, bool) {
	for _, m := range b.Maintenance {
		if m.Window.Overlaps(w) {
			return m, true
		}
		if m.Window.From.After(w.To) {
			break
		}
	}
	return MaintenanceWindow{}, false
}

// NextMaintenanceEnd returns the end of the maintenance window covering t,
// or t itself when the berth is clear at that instant.
func (b Berth) NextMaintenanceEnd(t time.Time) time.Time {
	for _, m := range b.Maintenance {
		if m.Window.Contains(t) {
			return m.Window.To
		}
	}
	return t
}
