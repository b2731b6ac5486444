package service

import (
	"context"
	"log/slog"
	"time"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/repository"
)

// StateFacade is the single read surface consumers use. Every call
// derives from a fresh logical read, so it can never disagree with
// storage the way per-component caches used to.
type StateFacade struct {
	store repository.RoleStore
	now   func() time.Time
}

// NewStateFacade creates a StateFacade.
func NewStateFacade(store repository.RoleStore) *StateFacade {
	return &StateFacade{store: store, now: time.Now}
}

// SetClock overrides the expiry clock (for tests).
func (f *StateFacade) SetClock(now func() time.Time) {
	f.now = now
}

// CurrentRole implements StateFacadeInterface.
func (f *StateFacade) CurrentRole(ctx context.Context) domain.Role {
	return f.Snapshot(ctx).CurrentRole
}

// AvailableRoles implements StateFacadeInterface.
func (f *StateFacade) AvailableRoles(ctx context.Context) domain.RoleSet {
	return f.Snapshot(ctx).AvailableRoles
}

// TestModeActive implements StateFacadeInterface.
func (f *StateFacade) TestModeActive(ctx context.Context) bool {
	state, err := f.store.ReadState(ctx)
	if err != nil {
		logger.Warn("state read failed, treating test mode as inactive",
			slog.String("error", err.Error()))
		return false
	}
	return state.TestMode.ActiveAt(f.now())
}

// Snapshot implements StateFacadeInterface. Expired test mode reads as
// inactive even though the physical record has not been rewritten yet.
func (f *StateFacade) Snapshot(ctx context.Context) domain.RoleState {
	state, err := f.store.ReadState(ctx)
	if err != nil {
		logger.Error("state read failed, serving defaults",
			slog.String("error", err.Error()))
		return domain.DefaultRoleState(f.now())
	}
	if !state.TestMode.ActiveAt(f.now()) {
		state.TestMode = domain.TestMode{}
	}
	return state
}

// Reset implements StateFacadeInterface.
func (f *StateFacade) Reset(ctx context.Context) error {
	return f.store.Reset(ctx)
}
