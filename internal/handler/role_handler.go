package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"role-state-sync/internal/domain"
	"role-state-sync/internal/middleware"
	"role-state-sync/internal/service"
)

// RoleHandler exposes the switch service and the state facade over HTTP.
type RoleHandler struct {
	switcher service.SwitchServiceInterface
	state    service.StateFacadeInterface
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(switcher service.SwitchServiceInterface, state service.StateFacadeInterface) *RoleHandler {
	return &RoleHandler{switcher: switcher, state: state}
}

// SwitchRoleRequest represents the request for switching roles.
type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SwitchRoleResponse reports how the switch concluded.
type SwitchRoleResponse struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Path       string `json:"path,omitempty"`
	Unchanged  bool   `json:"unchanged,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
}

// TestModeResponse is the test mode fragment of a state response.
type TestModeResponse struct {
	Active    bool    `json:"active"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

// StateResponse represents the full session role state.
type StateResponse struct {
	CurrentRole    string           `json:"current_role"`
	AvailableRoles []string         `json:"available_roles"`
	TestMode       TestModeResponse `json:"test_mode"`
	LastUpdated    string           `json:"last_updated"`
}

func toStateResponse(state domain.RoleState) StateResponse {
	resp := StateResponse{
		CurrentRole:    string(state.CurrentRole),
		AvailableRoles: state.AvailableRoles.Strings(),
		TestMode:       TestModeResponse{Active: state.TestMode.Active},
		LastUpdated:    state.LastUpdated.Format(TimeFormat),
	}
	if state.TestMode.ExpiresAt != nil {
		expires := state.TestMode.ExpiresAt.Format(TimeFormat)
		resp.TestMode.ExpiresAt = &expires
	}
	return resp
}

// GetState handles GET /api/v1/state
func (h *RoleHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, toStateResponse(h.state.Snapshot(c.Request.Context())))
}

// SwitchRole handles POST /api/v1/roles/switch
func (h *RoleHandler) SwitchRole(c *gin.Context) {
	var req SwitchRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.switcher.Switch(c.Request.Context(), domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRoleUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrAllStrategiesFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			middleware.Logger(c).Error("switch failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, SwitchRoleResponse{
		From:       string(result.From),
		To:         string(result.To),
		Path:       result.Path,
		Unchanged:  result.Unchanged,
		Superseded: result.Superseded,
	})
}

// ResetState handles POST /api/v1/state/reset
func (h *RoleHandler) ResetState(c *gin.Context) {
	if err := h.state.Reset(c.Request.Context()); err != nil {
		middleware.Logger(c).Error("state reset failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
