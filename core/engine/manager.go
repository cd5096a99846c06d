package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/berthd/core/conflict"
	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/engine/logging"
	"github.com/harborops/berthd/core/events"
	"github.com/harborops/berthd/core/history"
	"github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/prediction"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
	"github.com/harborops/berthd/core/suggest"
	"github.com/harborops/berthd/internal/eventbus"
	"github.com/harborops/berthd/metrics"
)

// Config bounds the manager's periodic work.
type Config struct {
	// TopN is the default suggestion count.
	TopN int `json:"top_n"`
	// SweepIntervalSeconds paces the periodic conflict sweep in Run.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
	// DetectHorizonHours scopes the periodic sweep.
	DetectHorizonHours int `json:"detect_horizon_hours"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopN == 0 {
		c.TopN = suggest.DefaultTopN
	}
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = 60
	}
	if c.DetectHorizonHours == 0 {
		c.DetectHorizonHours = 48
	}
}

// SweepInterval returns the sweep pacing as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// DetectHorizon returns the sweep scope as a duration.
func (c Config) DetectHorizon() time.Duration {
	return time.Duration(c.DetectHorizonHours) * time.Hour
}

// Deps carries the manager's collaborators.
type Deps struct {
	Store     *schedule.MemoryStore
	Lock      *schedule.HorizonLock
	Validator *constraint.Validator
	Scorer    *scoring.Engine
	Suggester *suggest.Service
	Optimizer *optimizer.Optimizer
	Detector  *conflict.Detector
	Reopt     *reopt.Engine
	Predictor prediction.EtaPredictor
	History   history.Store
	Decisions logging.Store
	Metrics   metrics.Sink
	Bus       eventbus.EventBus
	Logger    logger.Logger
}

// Manager is the allocation engine facade. It owns the vessel and berth
// registries, the pending-suggestion cache and the serialized commit path,
// and orchestrates validation, suggestion, optimization, detection and
// re-optimization over the shared schedule store.
type Manager struct {
	cfg       Config
	store     *schedule.MemoryStore
	lock      *schedule.HorizonLock
	validator *constraint.Validator
	scorer    *scoring.Engine
	suggester *suggest.Service
	optimizer *optimizer.Optimizer
	detector  *conflict.Detector
	reopt     *reopt.Engine
	predictor prediction.EtaPredictor
	history   history.Store
	decisions logging.Store
	sink      metrics.Sink
	bus       eventbus.EventBus
	log       logger.Logger

	mu        sync.Mutex
	vessels   map[string]model.Vessel
	berths    map[string]model.Berth
	resources map[model.ResourceType][]string
	pending   map[string]suggest.Suggestion
	lastEta   map[string]prediction.PredictedEta
}

// New creates a Manager.
func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Store == nil || deps.Validator == nil || deps.Scorer == nil ||
		deps.Suggester == nil || deps.Optimizer == nil || deps.Detector == nil || deps.Reopt == nil {
		return nil, fmt.Errorf("engine: nil collaborator provided to New")
	}
	cfg.SetDefaults()
	if deps.Lock == nil {
		deps.Lock = schedule.NewHorizonLock()
	}
	if deps.History == nil {
		deps.History = history.NewMemoryStore()
	}
	if deps.Decisions == nil {
		deps.Decisions = logging.NopStore{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop{}
	}
	return &Manager{
		cfg:       cfg,
		store:     deps.Store,
		lock:      deps.Lock,
		validator: deps.Validator,
		scorer:    deps.Scorer,
		suggester: deps.Suggester,
		optimizer: deps.Optimizer,
		detector:  deps.Detector,
		reopt:     deps.Reopt,
		predictor: deps.Predictor,
		history:   deps.History,
		decisions: deps.Decisions,
		sink:      deps.Metrics,
		bus:       deps.Bus,
		log:       deps.Logger,
		vessels:   make(map[string]model.Vessel),
		berths:    make(map[string]model.Berth),
		resources: make(map[model.ResourceType][]string),
		pending:   make(map[string]suggest.Suggestion),
		lastEta:   make(map[string]prediction.PredictedEta),
	}, nil
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	if err := m.decisions.Close(); err != nil {
		return err
	}
	return m.history.Close()
}

// RegisterVessel declares a vessel. Vessel records are immutable once a call
// exists; re-registration replaces the record for future calls only.
func (m *Manager) RegisterVessel(v model.Vessel) error {
	if err := v.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.vessels[v.ID] = v
	m.mu.Unlock()
	return nil
}

// RetireVessel removes a vessel from the registry at call close.
func (m *Manager) RetireVessel(id string) {
	m.mu.Lock()
	delete(m.vessels, id)
	delete(m.lastEta, id)
	m.mu.Unlock()
}

// RegisterBerth declares or updates a berth.
func (m *Manager) RegisterBerth(b model.Berth) error {
	if err := b.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.berths[b.ID] = b
	m.mu.Unlock()
	return nil
}

// RegisterResources declares the physical resources of one type available for
// allocation, e.g. the port's tug fleet.
func (m *Manager) RegisterResources(t model.ResourceType, ids []string) {
	m.mu.Lock()
	m.resources[t] = append([]string(nil), ids...)
	m.mu.Unlock()
}

func (m *Manager) vessel(id string) (model.Vessel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vessels[id]
	if !ok {
		return model.Vessel{}, fmt.Errorf("engine: unknown vessel %s", id)
	}
	return v, nil
}

func (m *Manager) berth(id string) (model.Berth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.berths[id]
	if !ok {
		return model.Berth{}, fmt.Errorf("engine: unknown berth %s", id)
	}
	return b, nil
}

func (m *Manager) berthList() []model.Berth {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Berth, 0, len(m.berths))
	for _, b := range m.berths {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) vesselMap() map[string]model.Vessel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Vessel, len(m.vessels))
	for id, v := range m.vessels {
		out[id] = v
	}
	return out
}

// ValidateAssignment checks a (vessel, berth, window) triple against the
// current schedule. An existing active assignment of the vessel is excluded
// from the overlap check so updates validate against everyone else.
func (m *Manager) ValidateAssignment(vesselID, berthID string, w model.Window) (constraint.Result, error) {
	v, err := m.vessel(vesselID)
	if err != nil {
		return constraint.Result{}, err
	}
	b, err := m.berth(berthID)
	if err != nil {
		return constraint.Result{}, err
	}
	snap := m.store.Snapshot()
	exclude := ""
	if a, ok := snap.ActiveForVessel(vesselID); ok {
		exclude = a.ID
	}
	return m.validator.Check(snap, v, b, w, exclude), nil
}

// SuggestBerths returns the ranked top-N feasible berths for the vessel. The
// suggestions stay pending until committed or superseded by a newer request
// for the same vessel.
func (m *Manager) SuggestBerths(ctx context.Context, vesselID string, preferredEta time.Time, topN int) ([]suggest.Suggestion, error) {
	v, err := m.vessel(vesselID)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = m.cfg.TopN
	}
	snap := m.store.Snapshot()
	suggestions, err := m.suggester.Suggest(snap, v, m.berthList(), preferredEta, topN)
	if err != nil {
		m.log.Debugf("no feasible berth for %s: %v", vesselID, err)
		return nil, err
	}

	m.mu.Lock()
	for id, s := range m.pending {
		if s.VesselID == vesselID {
			delete(m.pending, id)
		}
	}
	for _, s := range suggestions {
		m.pending[s.ID] = s
	}
	m.mu.Unlock()

	top := suggestions[0]
	m.publish(events.SuggestionEvent{
		VesselID:     vesselID,
		Count:        len(suggestions),
		TopBerthID:   top.BerthID,
		TopScore:     top.Score,
		DataDegraded: top.DataDegraded,
	})
	m.record(ctx, metricsSuggestion(top, len(suggestions)), logging.DecisionRecord{
		Kind:            logging.KindSuggestion,
		VesselID:        vesselID,
		BerthID:         top.BerthID,
		Score:           top.Score,
		Outcome:         fmt.Sprintf("%d candidates", len(suggestions)),
		SnapshotVersion: snap.Version,
	})
	return suggestions, nil
}

func metricsSuggestion(top suggest.Suggestion, served int) func(metrics.Sink) error {
	return func(s metrics.Sink) error {
		return s.RecordSuggestion(metrics.SuggestionEvent{
			VesselID:     top.VesselID,
			Served:       served,
			TopScore:     top.Score,
			DataDegraded: top.DataDegraded,
			Time:         time.Now(),
		})
	}
}

// CommitAssignment turns a pending suggestion into a schedule entry. The
// triple is re-validated against the current snapshot; a suggestion whose
// window no longer holds is rejected as stale and the caller must request a
// fresh one.
func (m *Manager) CommitAssignment(ctx context.Context, suggestionID string) (model.Assignment, error) {
	m.mu.Lock()
	sugg, ok := m.pending[suggestionID]
	m.mu.Unlock()
	if !ok {
		return model.Assignment{}, fmt.Errorf("engine: unknown or expired suggestion %s", suggestionID)
	}
	v, err := m.vessel(sugg.VesselID)
	if err != nil {
		return model.Assignment{}, err
	}
	b, err := m.berth(sugg.BerthID)
	if err != nil {
		return model.Assignment{}, err
	}

	snap := m.store.Snapshot()
	if res := m.validator.Check(snap, v, b, sugg.Window, ""); !res.Feasible() {
		first := res.First()
		return model.Assignment{}, fmt.Errorf("%w: suggestion %s no longer feasible (%s: %s)",
			schedule.ErrStaleSnapshot, suggestionID, first.RuleID, first.Message)
	}

	a := model.Assignment{
		ID:       uuid.NewString(),
		VesselID: v.ID,
		BerthID:  b.ID,
		Window:   sugg.Window,
		Status:   model.StatusScheduled,
		Score:    sugg.Score,
	}
	allocs, err := m.pickResources(snap, v, sugg.Window, "")
	if err != nil {
		return model.Assignment{}, err
	}
	if err := m.store.Put(snap.Version, a); err != nil {
		return model.Assignment{}, err
	}
	if err := m.store.Allocate(m.store.Version(), a.ID, allocs); err != nil {
		return model.Assignment{}, err
	}

	m.mu.Lock()
	delete(m.pending, suggestionID)
	m.mu.Unlock()

	m.publish(events.CommitEvent{Assignment: a})
	m.record(ctx, func(s metrics.Sink) error {
		return s.RecordCommit(metrics.CommitEvent{
			VesselID: a.VesselID, BerthID: a.BerthID, Score: a.Score,
			SnapshotVersion: snap.Version, Time: time.Now(),
		})
	}, logging.DecisionRecord{
		Kind:            logging.KindCommit,
		VesselID:        a.VesselID,
		BerthID:         a.BerthID,
		AssignmentIDs:   []string{a.ID},
		Score:           a.Score,
		Outcome:         "committed",
		SnapshotVersion: snap.Version,
	})
	m.log.Infof("committed vessel %s to berth %s, window %s - %s, score %.1f",
		a.VesselID, a.BerthID, a.Window.From.Format(time.RFC3339), a.Window.To.Format(time.RFC3339), a.Score)
	return a, nil
}

// pickResources selects free physical resource units covering the window from
// the registered directory. Allocations held by the excluded assignment do not
// count as busy, so a call keeps access to its own units when its window moves.
func (m *Manager) pickResources(snap schedule.Snapshot, v model.Vessel, w model.Window, exclude string) ([]model.ResourceAllocation, error) {
	demand := model.DemandFor(v)
	m.mu.Lock()
	directory := make(map[model.ResourceType][]string, len(m.resources))
	for t, ids := range m.resources {
		directory[t] = ids
	}
	m.mu.Unlock()

	busy := func(resourceID string) bool {
		for _, ra := range snap.Resources {
			if ra.ResourceID == resourceID && ra.AssignmentID != exclude && ra.Window.Overlaps(w) {
				return true
			}
		}
		return false
	}

	var allocs []model.ResourceAllocation
	needs := []struct {
		t model.ResourceType
		n int
	}{
		{model.ResourcePilot, demand.Pilots},
		{model.ResourceTug, demand.Tugs},
		{model.ResourceCrane, demand.Cranes},
	}
	for _, need := range needs {
		ids := directory[need.t]
		if len(ids) == 0 {
			// no directory for this type: availability is the external
			// pool's concern, nothing to reserve here
			continue
		}
		picked := 0
		for _, id := range ids {
			if picked == need.n {
				break
			}
			if busy(id) {
				continue
			}
			allocs = append(allocs, model.ResourceAllocation{
				ResourceID: id,
				Type:       need.t,
				Window:     w,
			})
			picked++
		}
		if picked < need.n {
			return nil, fmt.Errorf("engine: only %d of %d %ss free in window", picked, need.n, need.t)
		}
	}
	return allocs, nil
}

// RecordArrival marks the vessel approaching and stores the actual arrival.
func (m *Manager) RecordArrival(ctx context.Context, assignmentID string, t time.Time) (model.Assignment, error) {
	return m.recordLifecycle(ctx, assignmentID, "arrival", func(a *model.Assignment) error {
		return a.RecordArrival(t)
	})
}

// RecordBerthing marks the vessel berthed.
func (m *Manager) RecordBerthing(ctx context.Context, assignmentID string, t time.Time) (model.Assignment, error) {
	return m.recordLifecycle(ctx, assignmentID, "berthing", func(a *model.Assignment) error {
		return a.RecordBerthing(t)
	})
}

// RecordDeparture closes the call and folds it into the berth performance
// history feeding future scoring.
func (m *Manager) RecordDeparture(ctx context.Context, assignmentID string, t time.Time) (model.Assignment, error) {
	a, err := m.recordLifecycle(ctx, assignmentID, "departure", func(a *model.Assignment) error {
		return a.RecordDeparture(t)
	})
	if err != nil {
		return a, err
	}
	if v, verr := m.vessel(a.VesselID); verr == nil {
		rec := history.CallRecord{
			VesselID:    a.VesselID,
			VesselClass: v.Type,
			BerthID:     a.BerthID,
			Planned:     a.Window,
			ATA:         a.ATA,
			ATD:         a.ATD,
			ClosedAt:    t,
		}
		if herr := m.history.RecordCall(ctx, rec); herr != nil {
			m.log.Warnf("history record for %s failed: %v", a.VesselID, herr)
		}
	}
	return a, nil
}

func (m *Manager) recordLifecycle(ctx context.Context, assignmentID, stage string, fn func(*model.Assignment) error) (model.Assignment, error) {
	a, err := m.store.Update(assignmentID, fn)
	if err != nil {
		return model.Assignment{}, err
	}
	m.publish(events.LifecycleEvent{AssignmentID: a.ID, VesselID: a.VesselID, Stage: stage})
	m.record(ctx, func(s metrics.Sink) error {
		return s.RecordLifecycle(metrics.LifecycleEvent{
			Stage: stage, Delay: lifecycleDelay(a, stage), Time: time.Now(),
		})
	}, logging.DecisionRecord{
		Kind:          logging.KindLifecycle,
		VesselID:      a.VesselID,
		BerthID:       a.BerthID,
		AssignmentIDs: []string{a.ID},
		Outcome:       stage,
	})
	return a, nil
}

// lifecycleDelay is the signed gap between the actual and planned time.
func lifecycleDelay(a model.Assignment, stage string) time.Duration {
	switch stage {
	case "arrival":
		if a.ATA != nil {
			return a.ATA.Sub(a.Window.From)
		}
	case "berthing":
		if a.ATB != nil {
			return a.ATB.Sub(a.Window.From)
		}
	case "departure":
		if a.ATD != nil {
			return a.ATD.Sub(a.Window.To)
		}
	}
	return 0
}

// publish sends an event when a bus is wired.
func (m *Manager) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

// record writes one metrics event and one decision record, logging failures
// instead of failing the operation.
func (m *Manager) record(ctx context.Context, sinkFn func(metrics.Sink) error, rec logging.DecisionRecord) {
	if err := sinkFn(m.sink); err != nil {
		m.log.Warnf("metrics record failed: %v", err)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := m.decisions.Append(ctx, rec); err != nil {
		m.log.Warnf("decision log append failed: %v", err)
	}
}
