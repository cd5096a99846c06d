package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/engine"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/scoring"
	"github.com/harborops/berthd/infra/mqtt"
	"github.com/harborops/berthd/metrics"
)

// Config is the full service configuration.
type Config struct {
	Engine     engine.Config     `json:"engine"`
	Constraint constraint.Config `json:"constraint"`
	Scoring    scoring.Config    `json:"scoring"`
	Optimizer  optimizer.Config  `json:"optimizer"`
	Reopt      reopt.Config      `json:"reopt"`
	Metrics    metrics.Config    `json:"metrics"`
	Logging    LoggingConfig     `json:"logging"`
	History    HistoryConfig     `json:"history"`
	MQTT       MQTTConfig        `json:"mqtt"`
	Port       PortConfig        `json:"port"`
}

// MQTTConfig gates the alert bridge behind an enable flag; the connection
// settings live with the client.
type MQTTConfig struct {
	Enabled     bool `json:"enabled"`
	mqtt.Config `json:",squash"`
}

// PortConfig points at the port reference dataset.
type PortConfig struct {
	// Dataset is the path of the port layout file: berths, vessels,
	// resource units, tide table and weather series.
	Dataset string `json:"dataset"`
}

// Load reads the configuration file, applies BERTHD_ environment overrides
// (BERTHD_ENGINE__TOP_N=5 sets engine.top_n), fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("BERTHD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "berthd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Engine.SetDefaults()
	cfg.Constraint.SetDefaults()
	cfg.Scoring.SetDefaults()
	cfg.Optimizer.SetDefaults()
	cfg.Reopt.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.History.SetDefaults()
	if err := cfg.Constraint.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Optimizer.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Reopt.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.History.Validate(); err != nil {
		return nil, err
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt enabled without a broker")
	}
	return &cfg, nil
}
