package app

import (
	"context"
	"fmt"

	"github.com/harborops/berthd/config"
	"github.com/harborops/berthd/core/conflict"
	"github.com/harborops/berthd/core/constraint"
	"github.com/harborops/berthd/core/engine"
	"github.com/harborops/berthd/core/engine/logging"
	"github.com/harborops/berthd/core/history"
	corelogger "github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/core/optimizer"
	"github.com/harborops/berthd/core/prediction"
	"github.com/harborops/berthd/core/reopt"
	"github.com/harborops/berthd/core/schedule"
	"github.com/harborops/berthd/core/scoring"
	"github.com/harborops/berthd/core/suggest"
	"github.com/harborops/berthd/infra/logger"
	"github.com/harborops/berthd/infra/mqtt"
	"github.com/harborops/berthd/internal/eventbus"
	"github.com/harborops/berthd/metrics"
)

// Service assembles the allocation engine from configuration and drives its
// loops.
type Service struct {
	Manager *engine.Manager

	bus      eventbus.EventBus
	log      corelogger.Logger
	pub      mqtt.Publisher
	bridge   *mqtt.Bridge
	promAddr string
	etas     chan prediction.PredictedEta
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	port := &config.PortData{}
	if cfg.Port.Dataset != "" {
		var err error
		port, err = config.LoadPort(cfg.Port.Dataset)
		if err != nil {
			return nil, fmt.Errorf("port dataset: %w", err)
		}
	}

	store := schedule.NewMemoryStore()
	lock := schedule.NewHorizonLock()
	pool := engine.NewDirectoryPool(store)
	for t, ids := range port.Resources {
		pool.Set(t, ids)
	}
	weather := engine.NewSeriesWeather(port.Weather, cfg.Constraint.Blend())

	validator := constraint.New(cfg.Constraint, port.Tides, weather, pool)
	hist, err := newHistoryStore(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	scorer := scoring.New(cfg.Scoring, hist)
	opt := optimizer.New(cfg.Optimizer, validator, scorer, logger.New("optimizer"))

	decisions, err := newDecisionStore(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}
	sink, err := metrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	bus := eventbus.New()
	mgr, err := engine.New(cfg.Engine, engine.Deps{
		Store:     store,
		Lock:      lock,
		Validator: validator,
		Scorer:    scorer,
		Suggester: suggest.New(validator, scorer),
		Optimizer: opt,
		Detector:  conflict.New(cfg.Constraint, port.Tides, logger.New("conflicts")),
		Reopt:     reopt.New(cfg.Reopt, store, lock, opt, logger.New("reopt")),
		History:   hist,
		Decisions: decisions,
		Metrics:   sink,
		Bus:       bus,
		Logger:    logger.New("engine"),
	})
	if err != nil {
		return nil, err
	}
	for _, b := range port.Berths {
		if err := mgr.RegisterBerth(b); err != nil {
			return nil, err
		}
	}
	for _, v := range port.Vessels {
		if err := mgr.RegisterVessel(v); err != nil {
			return nil, err
		}
	}
	for t, ids := range port.Resources {
		mgr.RegisterResources(t, ids)
	}

	svc := &Service{
		Manager:  mgr,
		bus:      bus,
		log:      logg,
		promAddr: cfg.Metrics.PromAddr,
		etas:     make(chan prediction.PredictedEta, 16),
	}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT.Config)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.pub = pub
		svc.bridge = mqtt.NewBridge(pub, cfg.MQTT.Topics, bus)
	}
	return svc, nil
}

func newHistoryStore(cfg config.HistoryConfig) (history.Store, error) {
	if cfg.Backend == "sqlite" {
		return history.NewSQLiteStore(cfg.Path)
	}
	return history.NewMemoryStore(), nil
}

func newDecisionStore(cfg config.LoggingConfig) (logging.Store, error) {
	if cfg.Backend == "sqlite" {
		return logging.NewSQLiteStore(cfg.Path)
	}
	return logging.NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
}

// Etas is the tracking feed: estimates pushed here flow into the engine loop.
func (s *Service) Etas() chan<- prediction.PredictedEta { return s.etas }

// Run starts the engine loop and the configured side-channels, blocking until
// the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.bridge != nil {
		go s.bridge.Run(ctx)
	}
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go func() {
		if err := s.Manager.Run(ctx, s.etas); err != nil && err != context.Canceled {
			s.log.Errorf("engine loop: %v", err)
		}
	}()
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.pub != nil {
		s.pub.Close()
	}
	return s.Manager.Close()
}
