package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swarmoffice/orchestrator/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Swarm run API
	e.POST("/api/ceo/run", h.RunSwarm)
	e.GET("/api/ceo/runs", h.ListRuns)
	e.GET("/api/ceo/runs/:run_id", h.GetRun)

	// Agent catalog and direct chat
	e.GET("/api/agents", h.ListAgents)
	e.GET("/api/models", h.ListModels)
	e.POST("/api/agents/chat", h.AgentChat)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
