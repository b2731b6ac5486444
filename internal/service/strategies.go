package service

import (
	"context"
	"fmt"

	"role-state-sync/internal/repository"
)

// RemoteStrategy asks the role service to persist the change server-side.
type RemoteStrategy struct {
	client RemoteRoleSetter
}

// NewRemoteStrategy creates the remote strategy.
func NewRemoteStrategy(client RemoteRoleSetter) *RemoteStrategy {
	return &RemoteStrategy{client: client}
}

// Name implements Strategy.
func (s *RemoteStrategy) Name() string { return "remote" }

// Attempt implements Strategy.
func (s *RemoteStrategy) Attempt(ctx context.Context, req SwitchRequest) error {
	if s.client == nil {
		return fmt.Errorf("no remote client configured")
	}
	return s.client.SetRole(ctx, req.To)
}

// ContextStrategy delegates to a handler installed by the hosting shell
// (historically the app-context setRole callback).
type ContextStrategy struct {
	handler func(ctx context.Context, req SwitchRequest) error
}

// NewContextStrategy creates the context strategy.
func NewContextStrategy(handler func(ctx context.Context, req SwitchRequest) error) *ContextStrategy {
	return &ContextStrategy{handler: handler}
}

// Name implements Strategy.
func (s *ContextStrategy) Name() string { return "context" }

// Attempt implements Strategy.
func (s *ContextStrategy) Attempt(ctx context.Context, req SwitchRequest) error {
	if s.handler == nil {
		return fmt.Errorf("no context handler installed")
	}
	return s.handler(ctx, req)
}

// LegacyStrategy is the old direct-storage fallback: it writes the
// current-role key straight through the storage adapter. The switcher's
// commit step afterwards reconciles every backend to the same snapshot,
// so a legacy-path switch converges like any other.
type LegacyStrategy struct {
	store repository.RoleStore
}

// NewLegacyStrategy creates the legacy direct-write strategy.
func NewLegacyStrategy(store repository.RoleStore) *LegacyStrategy {
	return &LegacyStrategy{store: store}
}

// Name implements Strategy.
func (s *LegacyStrategy) Name() string { return "legacy" }

// Attempt implements Strategy.
func (s *LegacyStrategy) Attempt(ctx context.Context, req SwitchRequest) error {
	return s.store.WriteLogical(ctx, repository.KeyCurrentRole, string(req.To), req.Timestamp)
}
