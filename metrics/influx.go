package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	infralogger "github.com/harborops/berthd/infra/logger"

	corelogger "github.com/harborops/berthd/core/logger"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes allocation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func (s *InfluxSink) RecordSuggestion(ev SuggestionEvent) error {
	p := write.NewPointWithMeasurement("berth_suggestion").
		AddTag("vessel_id", ev.VesselID).
		AddTag("degraded", strconv.FormatBool(ev.DataDegraded)).
		AddField("served", ev.Served).
		AddField("top_score", round3(ev.TopScore)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordCommit(ev CommitEvent) error {
	p := write.NewPointWithMeasurement("berth_commit").
		AddTag("vessel_id", ev.VesselID).
		AddTag("berth_id", ev.BerthID).
		AddField("score", round3(ev.Score)).
		AddField("snapshot_version", int64(ev.SnapshotVersion)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordConflicts(evs []ConflictEvent) error {
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("berth_conflict").
			AddTag("type", ev.Type).
			AddTag("severity", ev.Severity).
			AddField("count", 1).
			SetTime(ev.Time)
		if err := s.write(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *InfluxSink) RecordOptimize(ev OptimizeEvent) error {
	p := write.NewPointWithMeasurement("berth_optimize").
		AddTag("optimal", strconv.FormatBool(ev.Optimal)).
		AddField("vessels", ev.Vessels).
		AddField("placed", ev.Placed).
		AddField("iterations", ev.Iterations).
		AddField("cost", round3(ev.Cost)).
		AddField("elapsed_ms", ev.Elapsed.Milliseconds()).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordReopt(ev ReoptEvent) error {
	p := write.NewPointWithMeasurement("berth_reopt").
		AddTag("trigger", ev.Trigger).
		AddTag("state", ev.State).
		AddField("changes", ev.Changes).
		AddField("improvement", round3(ev.Improvement)).
		AddField("elapsed_ms", ev.Elapsed.Milliseconds()).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordLifecycle(ev LifecycleEvent) error {
	p := write.NewPointWithMeasurement("berth_lifecycle").
		AddTag("stage", ev.Stage).
		AddField("delay_seconds", ev.Delay.Seconds()).
		SetTime(ev.Time)
	return s.write(p)
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() {
	s.client.Close()
}
