package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func newHealthRouter(checker HealthChecker) *gin.Engine {
	h := NewHealthHandler(checker)
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/live", h.Live)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthHandler_Healthy(t *testing.T) {
	router := newHealthRouter(stubChecker{})

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(router, "/live").Code)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	router := newHealthRouter(stubChecker{err: errors.New("pool exhausted")})

	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"unhealthy"`)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)
	// Liveness ignores backend health
	assert.Equal(t, http.StatusOK, get(router, "/live").Code)
}
