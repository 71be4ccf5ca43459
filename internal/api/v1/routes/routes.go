package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"speech-backend/internal/api/v1/handlers"
	"speech-backend/internal/api/v1/services"
)

// ServiceContainer holds all services needed by handlers
type ServiceContainer struct {
	TranscriptionService services.TranscriptionService
	HealthService        services.HealthService
	Logger               *zap.Logger
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, container *ServiceContainer) {
	transcriptionHandler := handlers.NewTranscriptionHandler(container.TranscriptionService, container.Logger)
	router.POST("/transcriptions", transcriptionHandler.Create)

	if container.HealthService != nil {
		healthHandler := handlers.NewHealthHandler(container.HealthService)
		router.GET("/health", healthHandler.Health)
	}
}

// RegisterRootRoutes registers the unversioned endpoints browser clients
// call directly
func RegisterRootRoutes(router gin.IRouter, container *ServiceContainer) {
	transcriptionHandler := handlers.NewTranscriptionHandler(container.TranscriptionService, container.Logger)
	router.POST("/stt", transcriptionHandler.STT)

	if container.HealthService != nil {
		healthHandler := handlers.NewHealthHandler(container.HealthService)
		router.GET("/", healthHandler.Root)
		router.GET("/health", healthHandler.Health)
		router.GET("/api/health", healthHandler.Ping)
	}
}
