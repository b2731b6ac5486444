package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/infrastructure/kv"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/metrics"
)

// Store implements RoleStore over a set of physical backends. Reads
// resolve conflicts by recency; writes fan out best-effort to every
// backend and are guarded against stale commits.
type Store struct {
	backends []kv.Backend

	// mu serializes the check-and-commit sequence so a slow writer cannot
	// overwrite a newer value between its staleness check and its writes.
	mu sync.Mutex
}

// NewStore creates a Store over the given backends. At least one backend
// is required.
func NewStore(backends ...kv.Backend) (*Store, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}
	return &Store{backends: backends}, nil
}

// ReadLogical implements RoleStore.
func (s *Store) ReadLogical(ctx context.Context, key LogicalKey) (kv.Record, bool, error) {
	keys, ok := physicalKeys[key]
	if !ok {
		return kv.Record{}, false, fmt.Errorf("unknown logical key %q", key)
	}

	var (
		best          kv.Record
		bestFound     bool
		fallback      kv.Record
		fallbackFound bool
	)

	for _, backend := range s.backends {
		for _, physKey := range keys {
			rec, found, err := backend.Get(ctx, physKey)
			if err != nil {
				logger.Warn("physical key read failed",
					slog.String("backend", backend.Name()),
					slog.String("key", physKey),
					slog.String("error", err.Error()))
				continue
			}
			if !found {
				continue
			}
			if !rec.Timestamped() {
				// Legacy record without a timestamp: never wins over a
				// timestamped value, but is better than nothing.
				if !fallbackFound {
					fallback = rec
					fallbackFound = true
				}
				continue
			}
			if !bestFound || rec.UpdatedAt.After(best.UpdatedAt) {
				best = rec
				bestFound = true
			}
		}
	}

	switch {
	case bestFound:
		metrics.LogicalReadsTotal.WithLabelValues(string(key), "hit").Inc()
		return best, true, nil
	case fallbackFound:
		metrics.LogicalReadsTotal.WithLabelValues(string(key), "legacy").Inc()
		return fallback, true, nil
	default:
		metrics.LogicalReadsTotal.WithLabelValues(string(key), "miss").Inc()
		return kv.Record{}, false, nil
	}
}

// WriteLogical implements RoleStore.
func (s *Store) WriteLogical(ctx context.Context, key LogicalKey, value string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, key, value, ts)
}

// writeLocked performs the staleness check and fan-out. Callers must hold mu.
func (s *Store) writeLocked(ctx context.Context, key LogicalKey, value string, ts time.Time) error {
	keys, ok := physicalKeys[key]
	if !ok {
		return fmt.Errorf("unknown logical key %q", key)
	}

	existing, found, err := s.ReadLogical(ctx, key)
	if err != nil {
		return err
	}
	if found && existing.Timestamped() && existing.UpdatedAt.After(ts) {
		metrics.StaleWritesTotal.Inc()
		logger.Debug("stale write discarded",
			slog.String("key", string(key)),
			slog.Time("write_ts", ts),
			slog.Time("committed_ts", existing.UpdatedAt))
		return domain.ErrStaleWrite
	}

	rec := kv.Record{Value: value, UpdatedAt: ts}
	failures := make(map[string]error)
	succeeded := 0

	for _, backend := range s.backends {
		for _, physKey := range keys {
			if err := backend.Set(ctx, physKey, rec); err != nil {
				failures[backend.Name()+"/"+physKey] = err
				metrics.BackendWriteFailuresTotal.WithLabelValues(backend.Name()).Inc()
				logger.Warn("physical key write failed",
					slog.String("backend", backend.Name()),
					slog.String("key", physKey),
					slog.String("error", err.Error()))
				continue
			}
			succeeded++
		}
	}

	if succeeded == 0 {
		errs := make([]error, 0, len(failures))
		for _, err := range failures {
			errs = append(errs, err)
		}
		return fmt.Errorf("write logical key %s failed on every backend: %w", key, errors.Join(errs...))
	}
	if len(failures) > 0 {
		return &domain.BackendWriteError{Failures: failures}
	}
	return nil
}

// ClearLogical implements RoleStore.
func (s *Store) ClearLogical(ctx context.Context, key LogicalKey) error {
	keys, ok := physicalKeys[key]
	if !ok {
		return fmt.Errorf("unknown logical key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, backend := range s.backends {
		for _, physKey := range keys {
			if err := backend.Delete(ctx, physKey); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", backend.Name(), physKey, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("clear logical key %s: %w", key, errors.Join(errs...))
	}
	return nil
}

// ReadState implements RoleStore.
func (s *Store) ReadState(ctx context.Context) (domain.RoleState, error) {
	now := time.Now()
	state := domain.DefaultRoleState(now)
	newest := time.Time{}

	if rec, found, err := s.ReadLogical(ctx, KeyCurrentRole); err != nil {
		return domain.RoleState{}, err
	} else if found {
		role, parseErr := domain.ParseRole(rec.Value)
		if parseErr != nil {
			logger.Warn("persisted current role is invalid, falling back to default",
				slog.String("value", rec.Value))
		} else {
			state.CurrentRole = role
		}
		if rec.UpdatedAt.After(newest) {
			newest = rec.UpdatedAt
		}
	}

	if rec, found, err := s.ReadLogical(ctx, KeyAvailableRoles); err != nil {
		return domain.RoleState{}, err
	} else if found {
		roles, decodeErr := decodeRoles(rec.Value)
		if decodeErr != nil {
			logger.Warn("persisted available roles are unreadable, falling back to default",
				slog.String("error", decodeErr.Error()))
		} else if len(roles) > 0 {
			state.AvailableRoles = roles
		}
		if rec.UpdatedAt.After(newest) {
			newest = rec.UpdatedAt
		}
	}

	if rec, found, err := s.ReadLogical(ctx, KeyTestMode); err != nil {
		return domain.RoleState{}, err
	} else if found {
		mode, decodeErr := decodeTestMode(rec.Value)
		if decodeErr != nil {
			logger.Warn("persisted test mode is unreadable, treating as inactive",
				slog.String("error", decodeErr.Error()))
		} else {
			state.TestMode = mode
		}
		if rec.UpdatedAt.After(newest) {
			newest = rec.UpdatedAt
		}
	}

	// Invariant repair: the current role must always be selectable.
	if !state.AvailableRoles.Contains(state.CurrentRole) {
		logger.Warn("current role missing from available set, repairing",
			slog.String("role", string(state.CurrentRole)))
		state.AvailableRoles = state.AvailableRoles.With(state.CurrentRole)
	}

	if !newest.IsZero() {
		state.LastUpdated = newest
	}
	return state, nil
}

// WriteState implements RoleStore.
func (s *Store) WriteState(ctx context.Context, state domain.RoleState) error {
	if !state.Valid() {
		return fmt.Errorf("%w: refusing to persist %q", domain.ErrInvalidRole, state.CurrentRole)
	}

	rolesValue, err := encodeRoles(state.AvailableRoles)
	if err != nil {
		return fmt.Errorf("encode available roles: %w", err)
	}
	modeValue, err := encodeTestMode(state.TestMode)
	if err != nil {
		return fmt.Errorf("encode test mode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partials := map[string]error{}
	for _, write := range []struct {
		key   LogicalKey
		value string
	}{
		{KeyCurrentRole, string(state.CurrentRole)},
		{KeyAvailableRoles, rolesValue},
		{KeyTestMode, modeValue},
	} {
		err := s.writeLocked(ctx, write.key, write.value, state.LastUpdated)
		if err == nil {
			continue
		}
		var partial *domain.BackendWriteError
		if errors.As(err, &partial) {
			for target, cause := range partial.Failures {
				partials[target] = cause
			}
			continue
		}
		if errors.Is(err, domain.ErrStaleWrite) {
			// The current-role key is the commit authority: if it is
			// stale the whole snapshot is stale and nothing else is
			// written. A stale secondary key just means a newer snapshot
			// already wrote it, and that value must survive.
			if write.key == KeyCurrentRole {
				return err
			}
			continue
		}
		return err
	}

	if len(partials) > 0 {
		return &domain.BackendWriteError{Failures: partials}
	}
	return nil
}

// Reset implements RoleStore.
func (s *Store) Reset(ctx context.Context) error {
	for _, key := range []LogicalKey{KeyCurrentRole, KeyAvailableRoles, KeyTestMode} {
		if err := s.ClearLogical(ctx, key); err != nil {
			return err
		}
	}
	return s.WriteState(ctx, domain.DefaultRoleState(time.Now()))
}

// Close implements RoleStore.
func (s *Store) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", backend.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func encodeRoles(roles domain.RoleSet) (string, error) {
	data, err := json.Marshal(roles)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRoles(value string) (domain.RoleSet, error) {
	var raw []domain.Role
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, err
	}
	return domain.NewRoleSet(raw...), nil
}

func encodeTestMode(mode domain.TestMode) (string, error) {
	data, err := json.Marshal(mode)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTestMode(value string) (domain.TestMode, error) {
	var mode domain.TestMode
	if err := json.Unmarshal([]byte(value), &mode); err != nil {
		return domain.TestMode{}, err
	}
	return mode, nil
}
