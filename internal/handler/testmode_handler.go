package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/testmode"
)

// TestModeHandler exposes the test mode controller over HTTP.
type TestModeHandler struct {
	controller *testmode.Controller
}

// NewTestModeHandler creates a new TestModeHandler.
func NewTestModeHandler(controller *testmode.Controller) *TestModeHandler {
	return &TestModeHandler{controller: controller}
}

// ActivateTestModeRequest represents the request for activating test mode.
// Duration is a Go duration string like "30m"; empty means the configured
// default.
type ActivateTestModeRequest struct {
	Duration string `json:"duration"`
}

// Activate handles POST /api/v1/test-mode
func (h *TestModeHandler) Activate(c *gin.Context) {
	// An empty body means "use the default duration".
	var req ActivateTestModeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var duration time.Duration
	if req.Duration != "" {
		parsed, err := time.ParseDuration(req.Duration)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a valid duration string"})
			return
		}
		duration = parsed
	}

	if err := h.controller.Activate(c.Request.Context(), duration); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Deactivate handles DELETE /api/v1/test-mode
func (h *TestModeHandler) Deactivate(c *gin.Context) {
	if err := h.controller.Deactivate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Status handles GET /api/v1/test-mode
func (h *TestModeHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active": h.controller.Active(c.Request.Context())})
}

// EnableAllRoles handles POST /api/v1/test-mode/enable-all-roles
func (h *TestModeHandler) EnableAllRoles(c *gin.Context) {
	if err := h.controller.EnableAllRoles(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrTestModeInactive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": domain.AllRoles().Strings()})
}
