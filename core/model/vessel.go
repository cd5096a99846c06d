package model

import (
	"fmt"
	"time"
)

// VesselType classifies the cargo handling profile of a vessel or berth.
type VesselType int

const (
	TypeContainer VesselType = iota
	TypeBulk
	TypeTanker
	TypeGeneral
	TypeRoRo
)

// String returns a human-readable representation of the vessel type.
func (t VesselType) String() string {
	switch t {
	case TypeContainer:
		return "container"
	case TypeBulk:
		return "bulk"
	case TypeTanker:
		return "tanker"
	case TypeGeneral:
		return "general"
	case TypeRoRo:
		return "ro-ro"
	default:
		return "unknown"
	}
}

// ParseVesselType converts a configuration string into a VesselType.
func ParseVesselType(s string) (VesselType, error) {
	switch s {
	case "container":
		return TypeContainer, nil
	case "bulk":
		return TypeBulk, nil
	case "tanker":
		return TypeTanker, nil
	case "general":
		return TypeGeneral, nil
	case "ro-ro", "roro":
		return TypeRoRo, nil
	default:
		return 0, fmt.Errorf("unknown vessel type %q", s)
	}
}

// CompatibleWith reports whether a vessel of type t can be worked at a berth
// of type b. Exact matches always qualify; general-cargo berths accept every
// type, and general vessels can be worked anywhere except tanker berths.
func (t VesselType) CompatibleWith(b VesselType) bool {
	if t == b || b == TypeGeneral {
		return true
	}
	if t == TypeGeneral {
		return b != TypeTanker
	}
	return false
}

// Priority levels for vessel calls. Lower value means more important.
const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

// Vessel describes a ship requesting a berth. All dimensions are in metres.
// A vessel record is immutable once a call exists; it is created on
// declaration and retired when the call closes.
type Vessel struct {
	ID             string
	Name           string
	LOA            float64 // length overall
	Beam           float64
	Draft          float64
	Type           VesselType
	Priority       int    // 1 = high ... 3 = low
	DangerousGoods string // IMO class, empty when none declared
	CargoVolume    float64
}

// Validate checks that the vessel dimensions are sound.
func (v Vessel) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vessel id is required")
	}
	if v.LOA <= 0 || v.Draft <= 0 {
		return fmt.Errorf("vessel %s: loa and draft must be positive", v.ID)
	}
	if v.Priority < PriorityHigh || v.Priority > PriorityLow {
		return fmt.Errorf("vessel %s: priority must be between 1 and 3", v.ID)
	}
	return nil
}

// DeepDraft reports whether the vessel requires tidal assistance given the
// configured draft threshold in metres.
func (v Vessel) DeepDraft(threshold float64) bool {
	return v.Draft > threshold
}

// EstimatedDwell derives the expected time alongside from the declared cargo
// volume. Small calls still block a berth for a minimum handling period.
func (v Vessel) EstimatedDwell() time.Duration {
	hours := 4 + v.CargoVolume/500
	if hours > 36 {
		hours = 36
	}
	return time.Duration(hours * float64(time.Hour))
}

// CraneDemand estimates the number of cranes needed to work the declared
// cargo volume within a normal call. At least one crane is always assumed.
func (v Vessel) CraneDemand() int {
	switch {
	case v.CargoVolume > 6000:
		return 4
	case v.CargoVolume > 3000:
		return 3
	case v.CargoVolume > 1000:
		return 2
	default:
		return 1
	}
}
