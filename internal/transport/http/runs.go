package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/swarmoffice/orchestrator/internal/domain"
)

// RunSwarm creates a swarm run and streams its wire events back as
// server-sent events. The stream always terminates with the [DONE] sentinel,
// whether the run completes, fails, or the client disconnects.
// POST /api/ceo/run
func (h *Handler) RunSwarm(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	run, denied, err := h.service.CreateRun(ctx, &req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "failed to") {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	emit := func(ev domain.SwarmEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("ERROR: failed to encode event: %v", err)
			return
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}

	if err := h.service.ExecuteRun(ctx, run, denied, emit); err != nil {
		// The error event has already been emitted and the run persisted as
		// failed; the stream still ends with the sentinel.
		log.Printf("WARN: run %s failed: %v", run.ID, err)
	}

	fmt.Fprintf(c.Response().Writer, "data: %s\n\n", "[DONE]")
	flusher.Flush()
	return nil
}

// ListRuns lists recent runs, newest first.
// GET /api/ceo/runs
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	runs, err := h.service.ListRuns(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GetRun gets a specific run by ID.
// GET /api/ceo/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	return c.JSON(http.StatusOK, run)
}
