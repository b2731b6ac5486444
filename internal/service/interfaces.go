package service

import (
	"context"
	"time"

	"role-state-sync/internal/domain"
)

// SwitchRequest carries everything a strategy needs to effect a role
// change.
type SwitchRequest struct {
	From           domain.Role
	To             domain.Role
	AvailableRoles domain.RoleSet
	Timestamp      time.Time
}

// Strategy is one concrete mechanism for attempting a role change.
// Strategies are tried in order; a failing strategy returns an error and
// the switcher falls through to the next one.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Attempt tries to effect the role change.
	Attempt(ctx context.Context, req SwitchRequest) error
}

// RemoteRoleSetter is the slice of the role service client the remote
// strategy needs.
type RemoteRoleSetter interface {
	SetRole(ctx context.Context, role domain.Role) error
}

// SwitchResult reports how a switch request concluded.
type SwitchResult struct {
	From domain.Role
	To   domain.Role
	// Path names the mechanism that won: a strategy name, or "local" for
	// test-mode transitions.
	Path string
	// Unchanged is set when the requested role was already current;
	// nothing was written and no event fired.
	Unchanged bool
	// Superseded is set when the commit lost the timestamp race to a
	// newer switch. The newer value survived in storage, but the change
	// event for this request still fired so subscribers see every
	// resolved switch.
	Superseded bool
}

// SwitchServiceInterface defines the interface for role transitions.
// Used for dependency injection and mocking in tests.
type SwitchServiceInterface interface {
	// Switch performs a role transition, hiding which underlying
	// mechanism succeeded.
	Switch(ctx context.Context, to domain.Role) (SwitchResult, error)
}

// StateFacadeInterface is the single read API consumers use for role
// state. All methods derive from a fresh storage read; there is no cache
// that can go stale independently of storage.
type StateFacadeInterface interface {
	// CurrentRole returns the active role.
	CurrentRole(ctx context.Context) domain.Role
	// AvailableRoles returns the set of selectable roles.
	AvailableRoles(ctx context.Context) domain.RoleSet
	// TestModeActive reports whether test mode is in effect, applying
	// the lazy expiry check.
	TestModeActive(ctx context.Context) bool
	// Snapshot returns the full state with expired test mode normalized
	// to inactive.
	Snapshot(ctx context.Context) domain.RoleState
	// Reset restores the default state (logout path).
	Reset(ctx context.Context) error
}
