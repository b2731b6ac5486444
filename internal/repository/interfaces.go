package repository

import (
	"context"
	"time"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/infrastructure/kv"
)

// LogicalKey is a conceptual storage slot backed by one or more physical
// keys that accumulated over the application's history.
type LogicalKey string

const (
	KeyCurrentRole    LogicalKey = "CURRENT_ROLE"
	KeyAvailableRoles LogicalKey = "AVAILABLE_ROLES"
	KeyTestMode       LogicalKey = "TEST_MODE"
)

// physicalKeys is the single place the logical-to-physical mapping lives.
// The first key in each list is the current one; the rest are legacy keys
// old components still read.
var physicalKeys = map[LogicalKey][]string{
	KeyCurrentRole:    {"currentRole", "userRole"},
	KeyAvailableRoles: {"cachedAvailableRoles"},
	KeyTestMode:       {"isTestMode", "testModeRole"},
}

// PhysicalKeys returns the physical keys mapped to a logical key.
func PhysicalKeys(key LogicalKey) []string {
	keys := physicalKeys[key]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// RoleStore is the one logical read/write surface over the physical
// backends. All role-state mutation in the engine flows through it.
type RoleStore interface {
	// ReadLogical returns the newest-timestamped value for key across
	// every backend and physical key, with found=false when nothing is
	// persisted.
	ReadLogical(ctx context.Context, key LogicalKey) (kv.Record, bool, error)
	// WriteLogical writes value to every physical key on every backend,
	// tagged with ts. It returns domain.ErrStaleWrite when a newer value
	// has already been committed, and *domain.BackendWriteError when some
	// but not all physical writes failed.
	WriteLogical(ctx context.Context, key LogicalKey, value string, ts time.Time) error
	// ClearLogical removes all physical keys for key on every backend.
	ClearLogical(ctx context.Context, key LogicalKey) error

	// ReadState assembles the full role state, applying defaults where
	// nothing is persisted and repairing broken invariants.
	ReadState(ctx context.Context) (domain.RoleState, error)
	// WriteState commits a full snapshot with the snapshot's LastUpdated
	// as the shared write timestamp, subject to the stale-write guard.
	WriteState(ctx context.Context, state domain.RoleState) error
	// Reset clears every logical key and persists the default state.
	Reset(ctx context.Context) error

	// Close releases the underlying backends.
	Close() error
}
