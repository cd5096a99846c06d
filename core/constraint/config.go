package constraint

import (
	"fmt"
	"time"

	"github.com/harborops/berthd/core/model"
)

// Config defines the hard-constraint parameters.
type Config struct {
	// BufferMinutes is the minimum idle gap between two assignments at the
	// same berth.
	BufferMinutes int `json:"buffer_minutes"`
	// DeepDraftMeters is the draft above which a vessel needs tidal
	// assistance.
	DeepDraftMeters float64 `json:"deep_draft_meters"`
	// TideToleranceHours is the maximum distance between the ETA and the
	// nearest high tide for deep-draft vessels.
	TideToleranceHours float64 `json:"tide_tolerance_hours"`
	// WeatherFloor is the impact factor below which operations are unsafe.
	WeatherFloor float64 `json:"weather_floor"`
	// WeatherBlend selects how snapshots over a window combine: "worst" or
	// "average".
	WeatherBlend string `json:"weather_blend"`
	// MissingWeatherFactor is assumed when no snapshot covers the window.
	MissingWeatherFactor float64 `json:"missing_weather_factor"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BufferMinutes == 0 {
		c.BufferMinutes = 30
	}
	if c.DeepDraftMeters == 0 {
		c.DeepDraftMeters = 12
	}
	if c.TideToleranceHours == 0 {
		c.TideToleranceHours = 2
	}
	if c.WeatherFloor == 0 {
		c.WeatherFloor = 0.5
	}
	if c.WeatherBlend == "" {
		c.WeatherBlend = "worst"
	}
	if c.MissingWeatherFactor == 0 {
		c.MissingWeatherFactor = 0.7
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WeatherBlend != "worst" && c.WeatherBlend != "average" {
		return fmt.Errorf("unknown weather blend %q", c.WeatherBlend)
	}
	if c.WeatherFloor < 0.5 || c.WeatherFloor > 1 {
		return fmt.Errorf("weather floor must be within [0.5, 1.0]")
	}
	if c.BufferMinutes < 0 {
		return fmt.Errorf("buffer must not be negative")
	}
	return nil
}

// Buffer returns the berth buffer as a duration.
func (c Config) Buffer() time.Duration {
	return time.Duration(c.BufferMinutes) * time.Minute
}

// TideTolerance returns the tidal tolerance as a duration.
func (c Config) TideTolerance() time.Duration {
	return time.Duration(c.TideToleranceHours * float64(time.Hour))
}

// Blend returns the configured blend mode.
func (c Config) Blend() model.WeatherBlend {
	if c.WeatherBlend == "average" {
		return model.BlendAverage
	}
	return model.BlendWorst
}
