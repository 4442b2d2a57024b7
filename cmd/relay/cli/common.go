package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/deepnoodle-ai/relay"
	"github.com/deepnoodle-ai/relay/config"
	"github.com/deepnoodle-ai/relay/metrics"
	"github.com/deepnoodle-ai/relay/slogger"
	"github.com/deepnoodle-ai/relay/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

// session is a loaded workflow with its store and engine.
type session struct {
	cfg      *config.Config
	workflow *relay.Workflow
	store    *config.OpenedStore
	engine   *relay.Engine
	logger   slogger.Logger
	registry *prometheus.Registry
}

func (s *session) Close() error {
	return s.store.Close()
}

// loadConfig reads the config named by the global flags and applies the
// environment and flag overrides, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnvironment(); err != nil {
		return nil, err
	}
	if storeRef != "" {
		store, err := config.ParseStore(storeRef)
		if err != nil {
			return nil, fmt.Errorf("invalid --store: %w", err)
		}
		cfg.Store = store
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	} else if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	workflow, err := config.Build(ctx, cfg, config.BuildOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := newSession(cfg, workflow, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*config.OpenedStore, error) {
	store, err := config.OpenStore(ctx, cfg.Store, cfg.BasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return store, nil
}

func newSession(cfg *config.Config, workflow *relay.Workflow, store *config.OpenedStore, logger slogger.Logger) (*session, error) {
	registry := prometheus.NewRegistry()
	engine, err := relay.NewEngine(relay.EngineOptions{
		Workflow: workflow,
		Store:    store,
		Logger:   logger,
		Metrics:  metrics.New(registry),
		Tracer:   tracing.New(nil),
	})
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:      cfg,
		workflow: workflow,
		store:    store,
		engine:   engine,
		logger:   logger,
		registry: registry,
	}, nil
}

func (s *session) durable() bool {
	switch s.cfg.Store.Type {
	case "", config.StoreMemory:
		return false
	}
	return true
}
