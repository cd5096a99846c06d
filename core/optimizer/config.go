package optimizer

import (
	"fmt"
	"time"
)

// Config defines the objective weights and search budget. The weights are
// operator configuration, not hard-coded business rules.
type Config struct {
	// WaitWeight (w1) prices one hour of fleet waiting time.
	WaitWeight float64 `json:"wait_weight"`
	// UtilizationWeight (w2) prices one fully idle berth over the horizon.
	UtilizationWeight float64 `json:"utilization_weight"`
	// PriorityPenalty (w3) prices an unassigned or delayed priority call.
	PriorityPenalty float64 `json:"priority_penalty"`
	// ScoreWeight (w4) rewards aggregate suggestion score.
	ScoreWeight float64 `json:"score_weight"`
	// TimeBudgetMS bounds one search run. On exhaustion the best feasible
	// solution found so far is returned, flagged non-optimal.
	TimeBudgetMS int `json:"time_budget_ms"`
	// MaxIterations caps local-search iterations independently of time.
	MaxIterations int `json:"max_iterations"`
	// SlotMinutes is the start-time granularity when shifting a window.
	SlotMinutes int `json:"slot_minutes"`
	// MaxShiftHours bounds how far past its preferred ETA a vessel may be
	// scheduled.
	MaxShiftHours float64 `json:"max_shift_hours"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.WaitWeight == 0 {
		c.WaitWeight = 10
	}
	if c.UtilizationWeight == 0 {
		c.UtilizationWeight = 5
	}
	if c.PriorityPenalty == 0 {
		c.PriorityPenalty = 50
	}
	if c.ScoreWeight == 0 {
		c.ScoreWeight = 1
	}
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = 3000
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 2000
	}
	if c.SlotMinutes == 0 {
		c.SlotMinutes = 30
	}
	if c.MaxShiftHours == 0 {
		c.MaxShiftHours = 24
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SlotMinutes < 0 || c.TimeBudgetMS < 0 || c.MaxIterations < 0 {
		return fmt.Errorf("search bounds must not be negative")
	}
	return nil
}

// TimeBudget returns the search budget as a duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMS) * time.Millisecond
}

// Slot returns the shift granularity as a duration.
func (c Config) Slot() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

// MaxShift returns the shift bound as a duration.
func (c Config) MaxShift() time.Duration {
	return time.Duration(c.MaxShiftHours * float64(time.Hour))
}
