package metrics

import (
	"fmt"

	"github.com/harborops/berthd/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PromAddr enables the /metrics HTTP listener when non-empty.
	PromAddr string `json:"prom_addr"`
}

var sinkRegistry = factory.NewRegistry[Sink]()

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(sinkRegistry.Register("nop", func(map[string]any) (Sink, error) {
		return NopSink{}, nil
	}))
	must(sinkRegistry.Register("prometheus", func(map[string]any) (Sink, error) {
		return NewPromSink(nil)
	}))
	must(sinkRegistry.Register("influx", func(conf map[string]any) (Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("influx sink requires a url")
		}
		return NewInfluxSinkWithFallback(c), nil
	}))
}

// NewSink creates a Sink from the provided configuration. No configuration
// yields a NopSink; multiple entries are combined into a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
