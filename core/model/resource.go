package model

// ResourceType identifies a shared port resource.
type ResourceType int

const (
	ResourcePilot ResourceType = iota
	ResourceTug
	ResourceCrane
)

// String returns a human-readable representation of the resource type.
func (t ResourceType) String() string {
	switch t {
	case ResourcePilot:
		return "pilot"
	case ResourceTug:
		return "tug"
	case ResourceCrane:
		return "crane"
	default:
		return "unknown"
	}
}

// ResourceAllocation reserves one resource for an assignment over a window.
// Allocations per resource obey the same no-overlap invariant as berths.
type ResourceAllocation struct {
	ResourceID   string
	Type         ResourceType
	AssignmentID string
	Window       Window
}

// ResourceDemand states how many units of each resource a call needs.
type ResourceDemand struct {
	Pilots int
	Tugs   int
	Cranes int
}

// DemandFor derives the standard resource demand for a vessel: one pilot,
// tug count scaled by length, cranes from cargo volume.
func DemandFor(v Vessel) ResourceDemand {
	tugs := 1
	if v.LOA > 180 {
		tugs = 2
	}
	if v.LOA > 280 {
		tugs = 3
	}
	return ResourceDemand{Pilots: 1, Tugs: tugs, Cranes: v.CraneDemand()}
}
