package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records allocation events in Prometheus metrics.
type PromSink struct {
	suggestions *prometheus.CounterVec
	commits     prometheus.Counter
	conflicts   *prometheus.CounterVec
	optimizer   *prometheus.CounterVec
	optimizeDur prometheus.Histogram
	reopt       *prometheus.CounterVec
	lifecycle   *prometheus.CounterVec
	delay       prometheus.Histogram
}

// register adds c to reg, reusing the existing collector when one with the
// same descriptor is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSink registers allocation metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the collectors
// are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	s.suggestions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "berth_suggestions_total",
		Help: "Total number of suggestion sets served",
	}, []string{"degraded"}))
	if err != nil {
		return nil, err
	}
	s.commits, err = register[prometheus.Counter](reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "berth_commits_total",
		Help: "Total number of assignments committed to the schedule",
	}))
	if err != nil {
		return nil, err
	}
	s.conflicts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "berth_conflicts_total",
		Help: "Total number of conflicts opened by detector sweeps",
	}, []string{"type", "severity"}))
	if err != nil {
		return nil, err
	}
	s.optimizer, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "berth_optimizer_runs_total",
		Help: "Total number of optimizer runs",
	}, []string{"optimal"}))
	if err != nil {
		return nil, err
	}
	s.optimizeDur, err = register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "berth_optimizer_duration_seconds",
		Help:    "Optimizer search duration",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	s.reopt, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "berth_reopt_runs_total",
		Help: "Total number of re-optimization runs",
	}, []string{"trigger", "state"}))
	if err != nil {
		return nil, err
	}
	s.lifecycle, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "berth_lifecycle_events_total",
		Help: "Total number of recorded arrival, berthing and departure events",
	}, []string{"stage"}))
	if err != nil {
		return nil, err
	}
	s.delay, err = register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "berth_lifecycle_delay_seconds",
		Help:    "Gap between actual and planned call times",
		Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
	}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PromSink) RecordSuggestion(ev SuggestionEvent) error {
	s.suggestions.WithLabelValues(strconv.FormatBool(ev.DataDegraded)).Inc()
	return nil
}

func (s *PromSink) RecordCommit(CommitEvent) error {
	s.commits.Inc()
	return nil
}

func (s *PromSink) RecordConflicts(evs []ConflictEvent) error {
	for _, ev := range evs {
		s.conflicts.WithLabelValues(ev.Type, ev.Severity).Inc()
	}
	return nil
}

func (s *PromSink) RecordOptimize(ev OptimizeEvent) error {
	s.optimizer.WithLabelValues(strconv.FormatBool(ev.Optimal)).Inc()
	s.optimizeDur.Observe(ev.Elapsed.Seconds())
	return nil
}

func (s *PromSink) RecordReopt(ev ReoptEvent) error {
	s.reopt.WithLabelValues(ev.Trigger, ev.State).Inc()
	return nil
}

func (s *PromSink) RecordLifecycle(ev LifecycleEvent) error {
	s.lifecycle.WithLabelValues(ev.Stage).Inc()
	d := ev.Delay
	if d < 0 {
		d = -d
	}
	s.delay.Observe(d.Seconds())
	return nil
}
