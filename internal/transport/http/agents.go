package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/llm"
)

// ListAgents lists the agent roster.
// GET /api/agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": h.service.Registry().All(),
	})
}

// ListModels lists the selectable gateway models.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": agents.AvailableModels,
	})
}

// AgentChatRequest is a direct chat request to a single agent.
type AgentChatRequest struct {
	AgentID  string            `json:"agentId"`
	Model    string            `json:"model,omitempty"`
	Messages []llm.ChatMessage `json:"messages"`
}

// AgentChat proxies a streaming conversation with one agent, re-emitting
// gateway chunks as server-sent events. Gateway rate-limit and quota
// failures surface as their HTTP statuses when they happen before the first
// chunk.
// POST /api/agents/chat
func (h *Handler) AgentChat(c echo.Context) error {
	ctx := c.Request().Context()

	var req AgentChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.AgentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "agentId is required"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages is required"})
	}
	if _, ok := h.service.Registry().FindByID(req.AgentID); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	// SSE headers go out with the first chunk so pre-stream gateway
	// failures can still return a proper status code.
	started := false
	start := func() {
		c.Response().Header().Set("Content-Type", "text/event-stream")
		c.Response().Header().Set("Cache-Control", "no-cache")
		c.Response().Header().Set("Connection", "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
		started = true
	}

	err := h.service.StreamAgentChat(ctx, req.AgentID, req.Model, req.Messages, func(chunk *llm.StreamChunk) error {
		if !started {
			start()
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err != nil && !started {
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		case errors.Is(err, llm.ErrQuotaExhausted):
			return c.JSON(http.StatusPaymentRequired, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if err != nil {
		// Mid-stream failure; the status line is already written.
		log.Printf("ERROR: agent chat stream failed: %v", err)
	}
	if !started {
		start()
	}

	fmt.Fprintf(c.Response().Writer, "data: %s\n\n", "[DONE]")
	flusher.Flush()
	return nil
}
