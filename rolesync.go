// Package rolesync wires the role state engine together: storage
// backends, the event bus, the test mode controller, the switch service
// and the read facade, all driven by environment configuration.
package rolesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"role-state-sync/internal/config"
	"role-state-sync/internal/eventbus"
	"role-state-sync/internal/handler"
	"role-state-sync/internal/infrastructure/database"
	"role-state-sync/internal/infrastructure/kv"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/remote"
	"role-state-sync/internal/repository"
	"role-state-sync/internal/service"
	"role-state-sync/internal/testmode"
	"role-state-sync/internal/validator"
)

// Engine is the composition root. One Engine corresponds to one session:
// it owns the storage adapter, the event bus and the services built on
// top of them.
type Engine struct {
	Switcher *service.SwitchService
	State    *service.StateFacade
	TestMode *testmode.Controller

	cfg   *config.Config
	store *repository.Store
	bus   *eventbus.Bus
	pool  *pgxpool.Pool

	// contextHandler is installed by the hosting shell after construction;
	// until then the context strategy reports itself unavailable.
	mu             sync.RWMutex
	contextHandler func(ctx context.Context, req service.SwitchRequest) error
}

// New builds an Engine from cfg. The memory backend is always present;
// Badger provides persistence across reloads and Postgres joins the
// fan-out when enabled.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	configureLogging(cfg.LogLevel)

	backends := []kv.Backend{kv.NewMemoryBackend("memory")}

	badgerBackend, err := kv.NewBadgerBackend("badger", kv.BadgerConfig{
		Path:     cfg.BadgerPath,
		InMemory: cfg.BadgerInMemory,
		Logger:   logger.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("open badger backend: %w", err)
	}
	backends = append(backends, badgerBackend)

	var pool *pgxpool.Pool
	if cfg.PostgresEnabled {
		pool, err = database.NewPostgres(ctx, database.PoolConfig{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			Database:          cfg.DBName,
			SSLMode:           cfg.DBSSLMode,
			MaxConns:          cfg.DBMaxConns,
			MinConns:          cfg.DBMinConns,
			MaxConnLifetime:   cfg.DBMaxConnLifetime,
			MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
			HealthCheckPeriod: cfg.DBHealthCheckPeriod,
		})
		if err != nil {
			_ = badgerBackend.Close()
			return nil, fmt.Errorf("connect postgres backend: %w", err)
		}
		backends = append(backends, kv.NewPostgresBackend("postgres", pool))
	}

	store, err := repository.NewStore(backends...)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		_ = badgerBackend.Close()
		return nil, err
	}

	bus := eventbus.New(logger.Default())
	client := remote.NewClient(cfg.RoleServiceURL, cfg.RoleServiceTimeout)

	controller := testmode.NewController(store, bus, testmode.Config{
		DefaultDuration: cfg.TestModeDefaultDuration,
		Notifier:        client,
		Identity:        uuid.NewString(),
	})

	e := &Engine{
		TestMode: controller,
		cfg:      cfg,
		store:    store,
		bus:      bus,
		pool:     pool,
	}

	strategies := []service.Strategy{
		service.NewRemoteStrategy(client),
		service.NewContextStrategy(e.callContextHandler),
		service.NewLegacyStrategy(store),
	}
	e.Switcher = service.NewSwitchService(store, bus, controller, validator.NewValidator(), strategies)
	e.State = service.NewStateFacade(store)

	return e, nil
}

// SetContextHandler installs the hosting shell's switch callback. Passing
// nil uninstalls it, which makes the context strategy fail over to the
// next one.
func (e *Engine) SetContextHandler(h func(ctx context.Context, req service.SwitchRequest) error) {
	e.mu.Lock()
	e.contextHandler = h
	e.mu.Unlock()
}

func (e *Engine) callContextHandler(ctx context.Context, req service.SwitchRequest) error {
	e.mu.RLock()
	h := e.contextHandler
	e.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("no context handler installed")
	}
	return h(ctx, req)
}

// HTTPHandler returns the embeddable ops API. The engine never listens
// on its own; hosting shells mount the handler wherever they serve HTTP.
func (e *Engine) HTTPHandler() http.Handler {
	return handler.NewRouter(e.Switcher, e.State, e.TestMode, e)
}

// Bus exposes the event bus for subscribing to role change and legacy
// signals.
func (e *Engine) Bus() *eventbus.Bus {
	return e.bus
}

// Store exposes the storage adapter, mostly for diagnostics.
func (e *Engine) Store() *repository.Store {
	return e.store
}

// HealthCheck pings the Postgres backend when one is configured.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if e.pool == nil {
		return nil
	}
	return database.HealthCheck(ctx, e.pool)
}

// Close shuts the engine down: the bus drains first so in-flight events
// still see live backends, then storage closes.
func (e *Engine) Close() error {
	var errs []error
	if err := e.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if e.pool != nil {
		e.pool.Close()
	}
	return errors.Join(errs...)
}

func configureLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger.SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
