package config

import "fmt"

// HistoryConfig selects the berth performance history backend. The memory
// backend forgets completed calls on restart; sqlite keeps the aggregates
// feeding the historical scoring factor across runs.
type HistoryConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *HistoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		c.Path = "history.db"
	}
}

// Validate checks the backend selection.
func (c HistoryConfig) Validate() error {
	switch c.Backend {
	case "memory", "sqlite":
		return nil
	default:
		return fmt.Errorf("unknown history backend %q", c.Backend)
	}
}
