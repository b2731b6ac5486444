package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/eventbus"
	"role-state-sync/internal/logger"
	"role-state-sync/internal/metrics"
	"role-state-sync/internal/repository"
	"role-state-sync/internal/testmode"
	"role-state-sync/internal/validator"
)

// pathLocal marks transitions performed without any strategy (test mode).
const pathLocal = "local"

// SwitchService performs role transitions. Concurrent Switch calls are
// allowed and resolved last-write-wins by commit timestamp; they are not
// serialized behind a lock.
type SwitchService struct {
	store      repository.RoleStore
	bus        *eventbus.Bus
	testMode   *testmode.Controller
	validator  *validator.Validator
	strategies []Strategy
	now        func() time.Time
}

// NewSwitchService creates a SwitchService. The strategy list is ordered:
// the first strategy to succeed wins and the rest are never attempted.
func NewSwitchService(
	store repository.RoleStore,
	bus *eventbus.Bus,
	testMode *testmode.Controller,
	v *validator.Validator,
	strategies []Strategy,
) *SwitchService {
	return &SwitchService{
		store:      store,
		bus:        bus,
		testMode:   testMode,
		validator:  v,
		strategies: strategies,
		now:        time.Now,
	}
}

// SetClock overrides the commit clock (for tests).
func (s *SwitchService) SetClock(now func() time.Time) {
	s.now = now
}

// Switch implements SwitchServiceInterface.
func (s *SwitchService) Switch(ctx context.Context, to domain.Role) (SwitchResult, error) {
	timer := metrics.NewTimer()

	if err := s.validator.ValidateRole(to); err != nil {
		metrics.ObserveSwitch(metrics.ResultRejected, "", 0)
		logger.Warn("switch rejected: invalid role", slog.String("role", string(to)))
		return SwitchResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, to)
	}

	state, err := s.store.ReadState(ctx)
	if err != nil {
		metrics.ObserveSwitch(metrics.ResultFailed, "", 0)
		return SwitchResult{}, fmt.Errorf("read state: %w", err)
	}

	if state.CurrentRole == to {
		logger.Debug("switch is a no-op, role already current", slog.String("role", string(to)))
		return SwitchResult{From: to, To: to, Unchanged: true}, nil
	}

	if !state.AvailableRoles.Contains(to) {
		metrics.ObserveSwitch(metrics.ResultRejected, "", 0)
		logger.Warn("switch rejected: role not available",
			slog.String("role", string(to)),
			slog.Any("available", state.AvailableRoles.Strings()))
		return SwitchResult{}, fmt.Errorf("%w: %q", domain.ErrRoleUnavailable, to)
	}

	ts := s.now()
	req := SwitchRequest{
		From:           state.CurrentRole,
		To:             to,
		AvailableRoles: state.AvailableRoles,
		Timestamp:      ts,
	}

	// Test-mode sessions transition purely locally: they must not depend
	// on, or be blocked by, service availability.
	path := pathLocal
	if !state.TestMode.ActiveAt(ts) {
		path = s.runStrategies(ctx, req)
		if path == "" {
			metrics.ObserveSwitch(metrics.ResultFailed, "", timer.Seconds())
			return SwitchResult{}, fmt.Errorf("switch to %q: %w", to, domain.ErrAllStrategiesFailed)
		}
	}

	newState := state
	newState.CurrentRole = to
	newState.LastUpdated = ts

	superseded := false
	if err := s.store.WriteState(ctx, newState); err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleWrite):
			// A newer switch already committed, so this write stays
			// discarded. The completed transition is still announced below:
			// subscribers hear every switch that resolved, even when the
			// persisted value only reflects the newest one.
			superseded = true
			logger.Info("switch superseded by a newer commit",
				slog.String("from", string(req.From)),
				slog.String("to", string(to)))
		default:
			var partial *domain.BackendWriteError
			if errors.As(err, &partial) {
				logger.Warn("switch committed on a subset of backends",
					slog.String("to", string(to)),
					slog.String("error", partial.Error()))
			} else {
				metrics.ObserveSwitch(metrics.ResultFailed, path, timer.Seconds())
				return SwitchResult{}, fmt.Errorf("commit switch to %q: %w", to, err)
			}
		}
	}

	ev := domain.RoleChangeEvent{
		From:           req.From,
		To:             to,
		AvailableRoles: newState.AvailableRoles,
		Timestamp:      ts,
	}
	if err := s.bus.PublishRoleChanged(ev); err != nil {
		// Storage is already the truth; subscribers will converge on the
		// next read.
		logger.Warn("role change event publish failed", slog.String("error", err.Error()))
	}

	if superseded {
		metrics.ObserveSwitch(metrics.ResultSuperseded, path, timer.Seconds())
		return SwitchResult{From: req.From, To: to, Path: path, Superseded: true}, nil
	}

	metrics.ObserveSwitch(metrics.ResultSuccess, path, timer.Seconds())
	logger.WithRole(string(to)).Info("role switched",
		slog.String("from", string(req.From)),
		slog.String("path", path))
	return SwitchResult{From: req.From, To: to, Path: path}, nil
}

// runStrategies tries each strategy in order and returns the name of the
// first one that succeeds, or "" when all fail. A panicking strategy is
// treated as a failed attempt, never propagated.
func (s *SwitchService) runStrategies(ctx context.Context, req SwitchRequest) string {
	for _, strategy := range s.strategies {
		err := s.attempt(ctx, strategy, req)
		if err == nil {
			metrics.ObserveStrategyAttempt(strategy.Name(), metrics.ResultSuccess)
			return strategy.Name()
		}
		metrics.ObserveStrategyAttempt(strategy.Name(), metrics.ResultFailed)
		logger.WithStrategy(strategy.Name()).Warn("switch strategy failed, falling through",
			slog.String("error", err.Error()))
	}
	return ""
}

func (s *SwitchService) attempt(ctx context.Context, strategy Strategy, req SwitchRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", strategy.Name(), r)
		}
	}()
	return strategy.Attempt(ctx, req)
}
