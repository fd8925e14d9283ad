package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-attendance-api/internal/handler"
	"github.com/noah-isme/hr-attendance-api/internal/middleware"
	"github.com/noah-isme/hr-attendance-api/internal/models"
)

// Handlers groups everything the router needs.
type Handlers struct {
	Auth          *handler.AuthHandler
	Metrics       *handler.MetricsHandler
	Authenticator middleware.Authenticator
}

// Register mounts the operational endpoints on the root and the auth API under prefix.
func Register(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/login-with-data", h.Auth.LoginWithData)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-with-data", h.Auth.RefreshWithData)
	auth.GET("/validate-token", h.Auth.ValidateToken)
	auth.POST("/validate-token", h.Auth.ValidateToken)

	secured := auth.Group("")
	secured.Use(middleware.Bearer(h.Authenticator))
	secured.POST("/logout", h.Auth.Logout)
	secured.GET("/me", h.Auth.Me)
	secured.POST("/change-password", middleware.RequireAbility(models.AbilityChangePassword), h.Auth.ChangePassword)
}
