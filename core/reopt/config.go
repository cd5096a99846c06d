package reopt

import (
	"fmt"
	"time"
)

// Config bounds when re-optimization fires and how its proposals are applied.
type Config struct {
	// SpeedDeltaKnots triggers on a vessel speed change above this value.
	SpeedDeltaKnots float64 `json:"speed_delta_knots"`
	// CourseDeltaDeg triggers on a course change above this value.
	CourseDeltaDeg float64 `json:"course_delta_deg"`
	// EtaShiftMinutes triggers on an absolute ETA deviation above this value.
	EtaShiftMinutes int `json:"eta_shift_minutes"`
	// HorizonHours is how far ahead of the trigger the affected window reaches.
	HorizonHours int `json:"horizon_hours"`
	// MinBenefit is the cost improvement below which a proposal is discarded
	// as NoChangeNeeded.
	MinBenefit float64 `json:"min_benefit"`
	// AutoShiftToleranceHours bounds the time shift an unattended apply may
	// perform. Larger shifts, and any berth reassignment, go to the operator.
	AutoShiftToleranceHours float64 `json:"auto_shift_tolerance_hours"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SpeedDeltaKnots == 0 {
		c.SpeedDeltaKnots = 2
	}
	if c.CourseDeltaDeg == 0 {
		c.CourseDeltaDeg = 15
	}
	if c.EtaShiftMinutes == 0 {
		c.EtaShiftMinutes = 30
	}
	if c.HorizonHours == 0 {
		c.HorizonHours = 48
	}
	if c.MinBenefit == 0 {
		c.MinBenefit = 1
	}
	if c.AutoShiftToleranceHours == 0 {
		c.AutoShiftToleranceHours = 4
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.HorizonHours < 0 || c.EtaShiftMinutes < 0 {
		return fmt.Errorf("reopt horizon and eta shift must not be negative")
	}
	return nil
}

// Horizon returns the affected-window length as a duration.
func (c Config) Horizon() time.Duration {
	return time.Duration(c.HorizonHours) * time.Hour
}

// EtaShift returns the ETA deviation threshold as a duration.
func (c Config) EtaShift() time.Duration {
	return time.Duration(c.EtaShiftMinutes) * time.Minute
}

// AutoShiftTolerance returns the unattended-apply shift bound as a duration.
func (c Config) AutoShiftTolerance() time.Duration {
	return time.Duration(c.AutoShiftToleranceHours * float64(time.Hour))
}
