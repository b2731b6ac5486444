package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/eventbus"
	"role-state-sync/internal/infrastructure/kv"
	"role-state-sync/internal/mocks"
	"role-state-sync/internal/repository"
	"role-state-sync/internal/service"
	"role-state-sync/internal/testmode"
	"role-state-sync/internal/validator"
)

type fixture struct {
	store    *repository.Store
	bus      *eventbus.Bus
	testMode *testmode.Controller
	svc      *service.SwitchService

	mu     sync.Mutex
	events []domain.RoleChangeEvent
	legacy []domain.LegacyRoleSignal
}

func newFixture(t *testing.T, strategies ...service.Strategy) *fixture {
	t.Helper()

	store, err := repository.NewStore(kv.NewMemoryBackend("memory"))
	require.NoError(t, err)

	bus := eventbus.New(nil)
	t.Cleanup(func() { _ = bus.Close() })

	controller := testmode.NewController(store, bus, testmode.Config{
		DefaultDuration: time.Hour,
	})

	f := &fixture{
		store:    store,
		bus:      bus,
		testMode: controller,
		svc:      service.NewSwitchService(store, bus, controller, validator.NewValidator(), strategies),
	}

	unsub, err := bus.SubscribeRoleChanged(func(ev domain.RoleChangeEvent) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
	})
	require.NoError(t, err)
	t.Cleanup(unsub)

	unsubLegacy, err := bus.SubscribeLegacySignal(func(sig domain.LegacyRoleSignal) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.legacy = append(f.legacy, sig)
	})
	require.NoError(t, err)
	t.Cleanup(unsubLegacy)

	return f
}

func (f *fixture) changeEvents() []domain.RoleChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RoleChangeEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fixture) legacySignals() []domain.LegacyRoleSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LegacyRoleSignal, len(f.legacy))
	copy(out, f.legacy)
	return out
}

func (f *fixture) waitForEvents(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.changeEvents()) >= n },
		2*time.Second, 5*time.Millisecond, "expected %d role.changed events", n)
}

// seedAllRoles persists a state where every role is selectable.
func (f *fixture) seedAllRoles(t *testing.T, current domain.Role) {
	t.Helper()
	require.NoError(t, f.store.WriteState(context.Background(), domain.RoleState{
		CurrentRole:    current,
		AvailableRoles: domain.AllRoles(),
		LastUpdated:    time.Now(),
	}))
}

func failingStrategy(t *testing.T, name string) *mocks.MockStrategy {
	strategy := mocks.NewMockStrategy(t)
	strategy.EXPECT().Name().Return(name).Maybe()
	strategy.EXPECT().Attempt(mock.Anything, mock.Anything).Return(errors.New(name + " unavailable")).Maybe()
	return strategy
}

func succeedingStrategy(t *testing.T, name string) *mocks.MockStrategy {
	strategy := mocks.NewMockStrategy(t)
	strategy.EXPECT().Name().Return(name).Maybe()
	strategy.EXPECT().Attempt(mock.Anything, mock.Anything).Return(nil).Maybe()
	return strategy
}

func TestSwitch_RejectsInvalidRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Switch(ctx, "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RoleViewer, state.CurrentRole)
	assert.Empty(t, f.changeEvents())
}

// Requesting a role outside the available set is rejected before any
// write or event.
func TestSwitch_RejectsUnavailableRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Switch(ctx, domain.RoleAdvertiser)
	assert.ErrorIs(t, err, domain.ErrRoleUnavailable)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RoleViewer, state.CurrentRole)
	assert.Equal(t, domain.NewRoleSet(domain.RoleViewer), state.AvailableRoles)
	assert.Empty(t, f.changeEvents())
}

func TestSwitch_SameRoleIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.Switch(ctx, domain.RoleViewer)
	require.NoError(t, err)
	assert.True(t, result.Unchanged)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.changeEvents(), "a no-op switch emits nothing")
}

// With test mode active and all roles enabled, the switch happens
// purely locally and no strategy is ever attempted.
func TestSwitch_TestModeBypassesStrategies(t *testing.T) {
	ctx := context.Background()

	// Any call on this mock fails the test: test-mode transitions must
	// not touch the remote path.
	untouchable := mocks.NewMockStrategy(t)
	f := newFixture(t, untouchable)

	require.NoError(t, f.testMode.Activate(ctx, time.Hour))
	require.NoError(t, f.testMode.EnableAllRoles(ctx))

	result, err := f.svc.Switch(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "local", result.Path)
	assert.Equal(t, domain.RoleViewer, result.From)
	assert.Equal(t, domain.RoleAdmin, result.To)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RoleAdmin, state.CurrentRole)
	assert.True(t, state.AvailableRoles.Equal(domain.AllRoles()))

	f.waitForEvents(t, 1)
	events := f.changeEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.RoleViewer, events[0].From)
	assert.Equal(t, domain.RoleAdmin, events[0].To)
}

// Remote and context fail, legacy succeeds; the final state reflects
// the legacy result and exactly one role.changed event fires.
func TestSwitch_FallbackConvergence(t *testing.T) {
	ctx := context.Background()

	remote := mocks.NewMockStrategy(t)
	remote.EXPECT().Name().Return("remote").Maybe()
	remote.EXPECT().Attempt(mock.Anything, mock.Anything).Return(errors.New("service unreachable"))

	contextStrategy := mocks.NewMockStrategy(t)
	contextStrategy.EXPECT().Name().Return("context").Maybe()
	contextStrategy.EXPECT().Attempt(mock.Anything, mock.Anything).Return(errors.New("no handler mounted"))

	f := newFixture(t)
	legacy := service.NewLegacyStrategy(f.store)
	f.svc = service.NewSwitchService(f.store, f.bus, f.testMode, validator.NewValidator(),
		[]service.Strategy{remote, contextStrategy, legacy})

	f.seedAllRoles(t, domain.RoleViewer)

	result, err := f.svc.Switch(ctx, domain.RolePublisher)
	require.NoError(t, err)
	assert.Equal(t, "legacy", result.Path)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RolePublisher, state.CurrentRole)

	f.waitForEvents(t, 1)
	time.Sleep(50 * time.Millisecond)
	events := f.changeEvents()
	require.Len(t, events, 1, "failed strategies must not leak spurious events")
	assert.Equal(t, domain.RoleViewer, events[0].From)
	assert.Equal(t, domain.RolePublisher, events[0].To)

	// The legacy signal mirrors the change exactly once too.
	signals := f.legacySignals()
	require.Len(t, signals, 1)
	assert.Equal(t, "publisher", signals[0].NewRole)
}

func TestSwitch_AllStrategiesFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingStrategy(t, "remote"), failingStrategy(t, "context"), failingStrategy(t, "legacy"))
	f.seedAllRoles(t, domain.RoleViewer)

	_, err := f.svc.Switch(ctx, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrAllStrategiesFailed)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RoleViewer, state.CurrentRole, "no storage mutation on total failure")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.changeEvents(), "no event on total failure")
}

func TestSwitch_PanickingStrategyFallsThrough(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	panicking := service.NewContextStrategy(func(context.Context, service.SwitchRequest) error {
		panic("handler exploded")
	})
	f.svc = service.NewSwitchService(f.store, f.bus, f.testMode, validator.NewValidator(),
		[]service.Strategy{panicking, service.NewLegacyStrategy(f.store)})

	f.seedAllRoles(t, domain.RoleViewer)

	result, err := f.svc.Switch(ctx, domain.RoleStakeholder)
	require.NoError(t, err)
	assert.Equal(t, "legacy", result.Path)
}

func TestSwitch_FirstSuccessShortCircuits(t *testing.T) {
	ctx := context.Background()

	remote := succeedingStrategy(t, "remote")
	// Any call on these mocks fails the test.
	contextStrategy := mocks.NewMockStrategy(t)
	legacy := mocks.NewMockStrategy(t)

	f := newFixture(t, remote, contextStrategy, legacy)
	f.seedAllRoles(t, domain.RoleViewer)

	result, err := f.svc.Switch(ctx, domain.RoleAdvertiser)
	require.NoError(t, err)
	assert.Equal(t, "remote", result.Path)
}

// A slow request that resolves after a newer commit must not overwrite
// storage, but its completed switch is still announced: subscribers see
// both events even though only the newer value persisted.
func TestSwitch_StaleCommitKeepsNewerRoleAndStillNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.testMode.Activate(ctx, time.Hour))
	require.NoError(t, f.testMode.EnableAllRoles(ctx))

	base := time.Now()

	// The later-timestamped request commits first.
	f.svc.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	first, err := f.svc.Switch(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, first.Superseded)

	// The earlier-timestamped request resolves second; its write is
	// discarded, never resurrecting the old role.
	f.svc.SetClock(func() time.Time { return base.Add(time.Minute) })
	second, err := f.svc.Switch(ctx, domain.RolePublisher)
	require.NoError(t, err)
	assert.True(t, second.Superseded)

	state, readErr := f.store.ReadState(ctx)
	require.NoError(t, readErr)
	assert.Equal(t, domain.RoleAdmin, state.CurrentRole, "the newer commit survives")

	f.waitForEvents(t, 2)
	time.Sleep(50 * time.Millisecond)
	events := f.changeEvents()
	require.Len(t, events, 2, "both resolved switches are announced")
	assert.Equal(t, domain.RoleAdmin, events[0].To)
	assert.Equal(t, domain.RolePublisher, events[1].To)

	// The persisted role matches the event with the latest timestamp,
	// not the last one delivered.
	latest := events[0]
	if events[1].Timestamp.After(latest.Timestamp) {
		latest = events[1]
	}
	assert.Equal(t, latest.To, state.CurrentRole)
}

// Two overlapping switches both commit in timestamp order; subscribers
// see both events and the later commit holds the final state.
func TestSwitch_OverlappingSwitchesLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.testMode.Activate(ctx, time.Hour))
	require.NoError(t, f.testMode.EnableAllRoles(ctx))

	base := time.Now()

	f.svc.SetClock(func() time.Time { return base.Add(time.Minute) })
	first, err := f.svc.Switch(ctx, domain.RoleAdvertiser)
	require.NoError(t, err)
	assert.False(t, first.Superseded)

	f.svc.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	second, err := f.svc.Switch(ctx, domain.RolePublisher)
	require.NoError(t, err)
	assert.False(t, second.Superseded)

	f.waitForEvents(t, 2)
	events := f.changeEvents()
	require.Len(t, events, 2, "subscribers see both switches")
	assert.Equal(t, domain.RoleAdvertiser, events[0].To)
	assert.Equal(t, domain.RolePublisher, events[1].To)

	state, err := f.store.ReadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePublisher, state.CurrentRole, "last write wins")
}

func TestSwitch_RemoteStrategyUsesClient(t *testing.T) {
	ctx := context.Background()

	client := mocks.NewMockRemoteRoleSetter(t)
	client.EXPECT().SetRole(mock.Anything, domain.RoleAdvertiser).Return(nil)

	f := newFixture(t)
	f.svc = service.NewSwitchService(f.store, f.bus, f.testMode, validator.NewValidator(),
		[]service.Strategy{service.NewRemoteStrategy(client)})

	f.seedAllRoles(t, domain.RoleViewer)

	result, err := f.svc.Switch(ctx, domain.RoleAdvertiser)
	require.NoError(t, err)
	assert.Equal(t, "remote", result.Path)
}
