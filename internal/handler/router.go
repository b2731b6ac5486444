package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"role-state-sync/internal/middleware"
	"role-state-sync/internal/service"
	"role-state-sync/internal/testmode"
)

// NewRouter assembles the embeddable ops API. The module has no process
// entry point of its own; hosting shells mount the returned router (it
// implements http.Handler) wherever they serve HTTP.
func NewRouter(
	switcher service.SwitchServiceInterface,
	state service.StateFacadeInterface,
	controller *testmode.Controller,
	checker HealthChecker,
) *gin.Engine {
	roleHandler := NewRoleHandler(switcher, state)
	testModeHandler := NewTestModeHandler(controller)
	healthHandler := NewHealthHandler(checker)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/state", roleHandler.GetState)
		v1.POST("/state/reset", roleHandler.ResetState)

		roles := v1.Group("/roles")
		{
			roles.POST("/switch", roleHandler.SwitchRole)
		}

		testMode := v1.Group("/test-mode")
		{
			testMode.GET("", testModeHandler.Status)
			testMode.POST("", testModeHandler.Activate)
			testMode.DELETE("", testModeHandler.Deactivate)
			testMode.POST("/enable-all-roles", testModeHandler.EnableAllRoles)
		}
	}

	return router
}
