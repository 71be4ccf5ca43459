package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"speech-backend/internal/api/middleware"
	"speech-backend/internal/api/v1/dto"
	"speech-backend/internal/api/v1/services"
)

// RootMessage is returned by GET /
const RootMessage = "speech-backend is running"

// HealthHandler serves liveness and dependency health
type HealthHandler struct {
	service services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service services.HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Root handles GET /
//
// @Summary Service banner
// @Tags health
// @Produce json
// @Success 200 {object} dto.RootResponse
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.RootResponse{OK: true, Msg: RootMessage})
}

// Health handles GET /health
//
// @Summary Dependency health
// @Description Reports engine, ffmpeg and scratch directory health
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp, err := h.service.Check(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Ping handles GET /api/health, a plain liveness probe
//
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} dto.RootResponse
// @Router /api/health [get]
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
