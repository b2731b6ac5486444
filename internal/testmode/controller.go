// Package testmode tracks the time-boxed developer override that unlocks
// all roles. State lives in the storage adapter like everything else;
// expiry is evaluated lazily on read so it survives reloads without a
// running timer.
package testmode

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/eventbus"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/metrics"
	"role-state-sync/internal/repository"
)

// RemoteNotifier mirrors an enable-all to the role service. Implemented
// by remote.Client.
type RemoteNotifier interface {
	EnableAllRoles(ctx context.Context, identity string) (domain.RoleSet, error)
}

// Config holds the controller's collaborators and policy knobs.
type Config struct {
	// DefaultDuration is used when Activate is called with a non-positive
	// duration.
	DefaultDuration time.Duration
	// Notifier, when set, is told about enable-all transitions after the
	// local commit. Failures are logged, never surfaced: test mode must
	// not depend on service availability.
	Notifier RemoteNotifier
	// Identity is the session identity sent to the notifier.
	Identity string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Controller is the test-mode state machine.
type Controller struct {
	store repository.RoleStore
	bus   *eventbus.Bus
	cfg   Config
}

// NewController creates a Controller.
func NewController(store repository.RoleStore, bus *eventbus.Bus, cfg Config) *Controller {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{store: store, bus: bus, cfg: cfg}
}

// Activate turns test mode on for the given duration, or the default when
// duration is non-positive. Activating while already active overwrites
// the expiry rather than erroring.
func (c *Controller) Activate(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		duration = c.cfg.DefaultDuration
	}

	now := c.cfg.Now()
	state, err := c.store.ReadState(ctx)
	if err != nil {
		return err
	}

	expiry := now.Add(duration)
	state.TestMode = domain.TestMode{Active: true, ExpiresAt: &expiry}
	state.LastUpdated = now

	if err := c.writeState(ctx, state); err != nil {
		return err
	}

	metrics.TestModeActivationsTotal.Inc()
	metrics.TestModeActive.Set(1)
	logger.Info("test mode activated",
		slog.Time("expires_at", expiry),
		slog.Duration("duration", duration))
	return nil
}

// Deactivate turns test mode off. Deactivating while inactive is a no-op.
func (c *Controller) Deactivate(ctx context.Context) error {
	now := c.cfg.Now()
	state, err := c.store.ReadState(ctx)
	if err != nil {
		return err
	}

	if !state.TestMode.Active && state.TestMode.ExpiresAt == nil {
		return nil
	}

	state.TestMode = domain.TestMode{}
	state.LastUpdated = now

	if err := c.writeState(ctx, state); err != nil {
		return err
	}

	metrics.TestModeActive.Set(0)
	logger.Info("test mode deactivated")
	return nil
}

// Active reports whether test mode is in effect right now, applying the
// lazy expiry check.
func (c *Controller) Active(ctx context.Context) bool {
	state, err := c.store.ReadState(ctx)
	if err != nil {
		logger.Warn("test mode read failed, treating as inactive",
			slog.String("error", err.Error()))
		return false
	}
	return state.TestMode.ActiveAt(c.cfg.Now())
}

// EnableAllRoles makes every role in the closed set selectable. Requires
// active test mode. Calling it twice in a row is idempotent: the second
// call changes nothing and emits no event.
func (c *Controller) EnableAllRoles(ctx context.Context) error {
	now := c.cfg.Now()
	state, err := c.store.ReadState(ctx)
	if err != nil {
		return err
	}
	if !state.TestMode.ActiveAt(now) {
		return domain.ErrTestModeInactive
	}

	all := domain.AllRoles()
	if state.AvailableRoles.Equal(all) {
		logger.Debug("enable all roles: already enabled, nothing to do")
		return nil
	}

	state.AvailableRoles = all
	state.LastUpdated = now

	if err := c.writeState(ctx, state); err != nil {
		return err
	}

	if err := c.bus.PublishAvailableRolesUpdated(domain.AvailableRolesEvent{
		AvailableRoles: all,
		CurrentRole:    state.CurrentRole,
		Timestamp:      now,
	}); err != nil {
		logger.Warn("available roles event publish failed", slog.String("error", err.Error()))
	}

	// Local state is already committed; the service mirror is advisory.
	if c.cfg.Notifier != nil {
		if _, err := c.cfg.Notifier.EnableAllRoles(ctx, c.cfg.Identity); err != nil {
			logger.Warn("remote enable-all notification failed",
				slog.String("error", err.Error()))
		}
	}

	logger.Info("all roles enabled", slog.String("current_role", string(state.CurrentRole)))
	return nil
}

// writeState commits through the storage adapter, tolerating partial
// backend failures.
func (c *Controller) writeState(ctx context.Context, state domain.RoleState) error {
	err := c.store.WriteState(ctx, state)
	var partial *domain.BackendWriteError
	if errors.As(err, &partial) {
		logger.Warn("test mode write landed on a subset of backends",
			slog.String("error", partial.Error()))
		return nil
	}
	return err
}
