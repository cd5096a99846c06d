package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/harborops/berthd/core/factory"
)

func TestNewSinkDefaults(t *testing.T) {
	s, err := NewSink(nil)
	require.NoError(t, err)
	require.IsType(t, NopSink{}, s)

	s, err = NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*MultiSink)
	require.True(t, ok, "expected MultiSink, got %T", s)
	require.Len(t, m.Sinks, 2)

	_, err = NewSink([]factory.ModuleConfig{{Type: "missing"}})
	require.Error(t, err)
}

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSink(reg)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.RecordSuggestion(SuggestionEvent{VesselID: "v1", Served: 3, TopScore: 81.2, Time: now}))
	require.NoError(t, s.RecordCommit(CommitEvent{VesselID: "v1", BerthID: "b1", Score: 81.2, Time: now}))
	require.NoError(t, s.RecordConflicts([]ConflictEvent{{Type: "time_overlap", Severity: "critical", Time: now}}))
	require.NoError(t, s.RecordOptimize(OptimizeEvent{Vessels: 4, Placed: 4, Optimal: true, Elapsed: 120 * time.Millisecond, Time: now}))
	require.NoError(t, s.RecordReopt(ReoptEvent{Trigger: "conflict", State: "applied", Changes: 1, Time: now}))
	require.NoError(t, s.RecordLifecycle(LifecycleEvent{Stage: "arrival", Delay: -10 * time.Minute, Time: now}))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"berth_suggestions_total", "berth_commits_total", "berth_conflicts_total",
		"berth_optimizer_runs_total", "berth_optimizer_duration_seconds",
		"berth_reopt_runs_total", "berth_lifecycle_events_total",
	} {
		require.True(t, names[want], "missing metric %s", want)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSink(reg)
	require.NoError(t, err)
	_, err = NewPromSink(reg)
	require.NoError(t, err)
}

func TestMultiSinkFansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPromSink(reg)
	require.NoError(t, err)
	m := NewMultiSink(NopSink{}, prom)
	require.NoError(t, m.RecordCommit(CommitEvent{VesselID: "v1", BerthID: "b1"}))

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "berth_commits_total" && f.GetMetric()[0].GetCounter().GetValue() == 1 {
			found = true
		}
	}
	require.True(t, found, "commit not recorded through the multi sink")
}
