package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/eventbus"
	"role-state-sync/internal/infrastructure/kv"
	"role-state-sync/internal/repository"
	"role-state-sync/internal/service"
	"role-state-sync/internal/testmode"
	"role-state-sync/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestStack builds a real in-memory engine core: storage, bus, test
// mode controller, a switcher with only the legacy strategy, and the
// facade.
func newTestStack(t *testing.T) (*service.SwitchService, *service.StateFacade, *testmode.Controller, *repository.Store) {
	t.Helper()

	store, err := repository.NewStore(kv.NewMemoryBackend("memory"))
	require.NoError(t, err)

	bus := eventbus.New(nil)
	t.Cleanup(func() { _ = bus.Close() })

	controller := testmode.NewController(store, bus, testmode.Config{DefaultDuration: time.Hour})
	switcher := service.NewSwitchService(store, bus, controller, validator.NewValidator(),
		[]service.Strategy{service.NewLegacyStrategy(store)})
	facade := service.NewStateFacade(store)
	return switcher, facade, controller, store
}

func newRoleRouter(t *testing.T) (*gin.Engine, *repository.Store) {
	t.Helper()
	switcher, facade, _, store := newTestStack(t)
	h := NewRoleHandler(switcher, facade)

	router := gin.New()
	router.GET("/api/v1/state", h.GetState)
	router.POST("/api/v1/roles/switch", h.SwitchRole)
	router.POST("/api/v1/state/reset", h.ResetState)
	return router, store
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoleHandler_GetState(t *testing.T) {
	router, _ := newRoleRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "viewer", resp.CurrentRole)
	assert.Equal(t, []string{"viewer"}, resp.AvailableRoles)
	assert.False(t, resp.TestMode.Active)
}

func TestRoleHandler_SwitchRole(t *testing.T) {
	t.Run("switches to an available role", func(t *testing.T) {
		router, store := newRoleRouter(t)
		require.NoError(t, store.WriteState(context.Background(), domain.RoleState{
			CurrentRole:    domain.RoleViewer,
			AvailableRoles: domain.AllRoles(),
			LastUpdated:    time.Now(),
		}))

		w := postJSON(router, "/api/v1/roles/switch", SwitchRoleRequest{Role: "publisher"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp SwitchRoleResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "viewer", resp.From)
		assert.Equal(t, "publisher", resp.To)
		assert.Equal(t, "legacy", resp.Path)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		router, _ := newRoleRouter(t)

		w := postJSON(router, "/api/v1/roles/switch", SwitchRoleRequest{Role: "superuser"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an unavailable role with conflict", func(t *testing.T) {
		router, _ := newRoleRouter(t)

		w := postJSON(router, "/api/v1/roles/switch", SwitchRoleRequest{Role: "admin"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects a missing role field", func(t *testing.T) {
		router, _ := newRoleRouter(t)

		w := postJSON(router, "/api/v1/roles/switch", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRoleHandler_ResetState(t *testing.T) {
	router, store := newRoleRouter(t)
	require.NoError(t, store.WriteState(context.Background(), domain.RoleState{
		CurrentRole:    domain.RoleAdmin,
		AvailableRoles: domain.AllRoles(),
		LastUpdated:    time.Now(),
	}))

	w := postJSON(router, "/api/v1/state/reset", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "viewer", resp.CurrentRole)
}
