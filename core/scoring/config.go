package scoring

import "fmt"

// Weights caps the contribution of each soft factor. The defaults sum to 100
// so the total score stays in [0, 100]; operators tune the balance, not the
// business rules.
type Weights struct {
	PhysicalMargin float64 `json:"physical_margin"`
	WaitingTime    float64 `json:"waiting_time"`
	CraneAdequacy  float64 `json:"crane_adequacy"`
	TypeMatch      float64 `json:"type_match"`
	History        float64 `json:"history"`
	Priority       float64 `json:"priority"`
}

// Config defines the scoring parameters.
type Config struct {
	Weights Weights `json:"weights"`
	// WaitHorizonHours is the wait beyond which the waiting-time factor
	// decays to zero.
	WaitHorizonHours float64 `json:"wait_horizon_hours"`
	// PartialTypeMatch is the fraction of the type factor granted to a
	// compatible but not exact berth type.
	PartialTypeMatch float64 `json:"partial_type_match"`
}

// SetDefaults applies the standard factor caps.
func (c *Config) SetDefaults() {
	w := &c.Weights
	if w.PhysicalMargin == 0 {
		w.PhysicalMargin = 20
	}
	if w.WaitingTime == 0 {
		w.WaitingTime = 25
	}
	if w.CraneAdequacy == 0 {
		w.CraneAdequacy = 20
	}
	if w.TypeMatch == 0 {
		w.TypeMatch = 15
	}
	if w.History == 0 {
		w.History = 10
	}
	if w.Priority == 0 {
		w.Priority = 10
	}
	if c.WaitHorizonHours == 0 {
		c.WaitHorizonHours = 24
	}
	if c.PartialTypeMatch == 0 {
		c.PartialTypeMatch = 0.6
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WaitHorizonHours <= 0 {
		return fmt.Errorf("wait horizon must be positive")
	}
	if c.PartialTypeMatch < 0 || c.PartialTypeMatch > 1 {
		return fmt.Errorf("partial type match must be within [0, 1]")
	}
	return nil
}
