// Package http provides the HTTP server for the orchestrator.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/swarmoffice/orchestrator/internal/service"
)

// NewServer creates and configures the orchestrator HTTP server. It handles
// swarm run execution with server-sent event streaming, run retrieval, the
// agent catalog, and direct agent chat.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	h := NewHandler(svc)
	h.RegisterRoutes(e)

	return e
}
