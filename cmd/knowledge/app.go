package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"knowledge/internal/client/api"
	"knowledge/internal/client/cache"
	"knowledge/internal/client/notify"
	"knowledge/internal/client/reconcile"
	"knowledge/internal/client/search"
	"knowledge/internal/client/sequence"
	"knowledge/internal/client/state"
	"knowledge/internal/config"
)

// app is the client core wired for one command invocation.
type app struct {
	cfg     *config.ClientConfig
	storage cache.Storage
	store   *state.Store
	search  *search.Coordinator
	engine  *reconcile.Engine
	logger  *slog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	storage, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	store := state.New(storage, logger)
	remote := api.NewClient(cfg.APIBaseURL, cfg.InitData, cfg.APITimeout, logger)
	guard := sequence.New()
	notifier := notify.NewLogNotifier(logger)
	coordinator := search.NewCoordinator(remote, store, guard, notifier, cfg.SearchLimit, logger)

	logger.Debug("client ready",
		"api_base_url", cfg.APIBaseURL,
		"state_backend", cfg.StateBackend,
		"state_dir", cfg.StateDir,
	)

	return &app{
		cfg:     cfg,
		storage: storage,
		store:   store,
		search:  coordinator,
		engine:  reconcile.NewEngine(remote, store, guard, coordinator, notifier, logger),
		logger:  logger,
	}, nil
}

func openStorage(cfg *config.ClientConfig) (cache.Storage, error) {
	switch cfg.StateBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
		db, err := cache.OpenSQLite(filepath.Join(cfg.StateDir, "state.db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendFile, "":
		fs, err := cache.NewFileStorage(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Warn("failed to close state storage", "error", err)
	}
}

// withApp builds the app, runs fn and releases the storage.
func withApp(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
