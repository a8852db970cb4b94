// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"agora/internal/core/security"
	"agora/internal/domain/lifecycle"
	"agora/internal/infrastructure/http/v1/handlers"
	"agora/internal/infrastructure/http/v1/middleware"
	"agora/internal/infrastructure/storage/postgres"
	"agora/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// TokenValidator validates bearer tokens.
	TokenValidator middleware.TokenValidator

	// Destroyer runs post lifecycle operations.
	Destroyer *lifecycle.Destroyer

	// Roles guards the admin sweep endpoints.
	Roles security.RolePolicy

	// AuditLog reads post audit history.
	AuditLog handlers.AuditReader
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.TokenValidator))
	{
		baseHandler := handlers.NewBaseHandler()

		postHandler := handlers.NewPostHandler(baseHandler, cfg.Destroyer, cfg.AuditLog)
		postHandler.RegisterRoutes(v1.Group("/posts"))

		adminHandler := handlers.NewAdminHandler(baseHandler, cfg.Destroyer, cfg.Roles)
		adminHandler.RegisterRoutes(v1.Group("/admin"))
	}

	return router
}
