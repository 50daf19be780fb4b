package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/swarmoffice/orchestrator/internal/domain"
	"github.com/swarmoffice/orchestrator/internal/llm"
)

// RunRemote delegates the run to the authoritative orchestrator endpoint and
// mirrors its event stream into local state. The returned state is terminal.
// Abort cancels the request; the server finishes or abandons the run on its
// side while local state moves to aborted immediately.
func (e *Engine) RunRemote(ctx context.Context, cfg Config, baseURL string, client *http.Client) (RunState, error) {
	e.mu.Lock()
	if e.running {
		st := e.state.clone()
		e.mu.Unlock()
		return st, fmt.Errorf("run already in progress")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.reason = domain.CancelNone
	e.cancel = cancel
	e.resetState()
	e.setHint(domain.ActivityCollaboration)
	e.publish()
	e.mu.Unlock()
	defer cancel()

	err := e.followRemote(runCtx, cfg, baseURL, client)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	switch {
	case e.state.Phase.Terminal():
		// Abort, or a projected terminal event, already settled the state.
	case err != nil:
		e.state.Phase = domain.PhaseAborted
		if e.reason != domain.CancelUserAbort {
			e.reason = domain.CancelFailure
			e.state.Error = err.Error()
		}
		e.setHint(domain.ActivityIdle)
		e.publish()
	default:
		// Stream ended cleanly without an explicit final event.
		e.state.Phase = domain.PhaseComplete
		e.setHint(domain.ActivitySuccess)
		e.scheduleDecay()
		e.publish()
	}
	if e.reason == domain.CancelUserAbort {
		err = nil
	}
	return e.state.clone(), err
}

func (e *Engine) followRemote(ctx context.Context, cfg Config, baseURL string, client *http.Client) error {
	if client == nil {
		client = http.DefaultClient
	}
	reqBody := domain.RunRequest{
		Goal:            cfg.Directive,
		Mode:            cfg.Depth,
		Model:           cfg.Model,
		Budgets:         domain.Budgets{MaxTokens: cfg.TokenCap, MaxToolCalls: cfg.ToolCallLimit},
		ToolPermissions: cfg.Integrations,
		DeviceID:        cfg.DeviceID,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(baseURL, "/")+"/api/ceo/run", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("orchestrator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("orchestrator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return e.FollowStream(ctx, resp.Body)
}

// FollowStream consumes a `data: <json>` event stream produced by the
// orchestrator endpoint and projects each event into local state. It returns
// when the stream ends, the done sentinel arrives, or ctx is cancelled.
func (e *Engine) FollowStream(ctx context.Context, body io.Reader) error {
	var dec llm.FrameDecoder
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				e.project(frame)
			}
			if dec.Done() {
				return nil
			}
		}
		if readErr != nil {
			for _, frame := range dec.Flush() {
				e.project(frame)
			}
			if readErr == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream read failed: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// project folds one wire event into local state, mirroring what the local
// phase loop would have produced.
func (e *Engine) project(frame []byte) {
	var ev domain.SwarmEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase.Terminal() {
		return
	}
	e.recordSwarmEventLocked(ev)

	switch ev.Type {
	case domain.EventPhase:
		phase := phaseFromEvent(ev)
		if phase == "" {
			break
		}
		e.state.Phase = phase
		agentEv := domain.NewAgentEvent(e.registry.ResolveActor(ev.Actor), agentEventForPhase(phase), ev.SafeTrace)
		agentEv.Detail = domain.PhaseLabels[phase]
		e.recordAgentEventLocked(agentEv)
		e.setHint(domain.HintForPhase(phase))

	case domain.EventAgentMessage:
		agentID := e.registry.ResolveActor(ev.Actor)
		switch {
		case strings.Contains(ev.SafeTrace, "starting"):
			e.setTaskStatusLocked(agentID, domain.TaskRunning)
			e.recordAgentEventLocked(domain.NewAgentEvent(agentID, domain.AgentEventGenerating, ev.SafeTrace))
		case strings.Contains(ev.SafeTrace, "completed"):
			e.setTaskStatusLocked(agentID, domain.TaskDone)
			if s := payloadString(ev.Payload, "outputPreview"); s != "" {
				e.setTaskOutputLocked(agentID, s)
			}
			e.recordAgentEventLocked(domain.NewAgentEvent(agentID, domain.AgentEventComplete, ev.SafeTrace))
		default:
			e.recordAgentEventLocked(domain.NewAgentEvent(agentID, domain.AgentEventPlanning, ev.SafeTrace))
		}

	case domain.EventToolCall, domain.EventToolResult:
		e.recordAgentEventLocked(domain.NewAgentEvent(
			e.registry.ResolveActor(ev.Actor), domain.AgentEventToolCall, ev.SafeTrace))

	case domain.EventError:
		e.state.Phase = domain.PhaseAborted
		e.state.Error = strings.TrimPrefix(ev.SafeTrace, "Error: ")
		e.reason = domain.CancelFailure
		e.recordAgentEventLocked(domain.NewAgentEvent(
			e.registry.ResolveActor(ev.Actor), domain.AgentEventError, ev.SafeTrace))
		e.setHint(domain.ActivityIdle)

	case domain.EventFinal:
		e.state.Phase = domain.PhaseComplete
		if s := payloadString(ev.Payload, "finalOutput"); s != "" {
			e.state.FinalOutput = s
		}
		if s := payloadString(ev.Payload, "runId"); s != "" {
			e.state.RunID = s
		}
		e.recordAgentEventLocked(domain.NewAgentEvent(
			e.registry.ResolveActor(ev.Actor), domain.AgentEventComplete, ev.SafeTrace))
		e.setHint(domain.ActivitySuccess)
		e.scheduleDecay()
	}
	e.publish()
}

// phaseFromEvent resolves the phase from the structured payload, falling back
// to trace matching for streams from older emitters.
func phaseFromEvent(ev domain.SwarmEvent) domain.Phase {
	if s := payloadString(ev.Payload, "phase"); s != "" {
		return domain.Phase(s)
	}
	for phase, label := range map[domain.Phase]string{
		domain.PhaseStrategicBreakdown: "Strategic Breakdown",
		domain.PhaseParallelWork:       "Parallel Execution",
		domain.PhaseInternalReview:     "Internal Review",
		domain.PhaseConsolidation:      "Consolidation",
	} {
		if strings.Contains(ev.SafeTrace, label) {
			return phase
		}
	}
	return ""
}

func agentEventForPhase(phase domain.Phase) domain.AgentEventType {
	switch phase {
	case domain.PhaseInternalReview:
		return domain.AgentEventReviewing
	case domain.PhaseConsolidation:
		return domain.AgentEventGenerating
	}
	return domain.AgentEventPlanning
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

func (e *Engine) setTaskStatusLocked(agentID string, status domain.TaskStatus) {
	for i := range e.state.Tasks {
		if e.state.Tasks[i].AgentID == agentID {
			e.state.Tasks[i].Status = status
		}
	}
}

func (e *Engine) setTaskOutputLocked(agentID, output string) {
	for i := range e.state.Tasks {
		if e.state.Tasks[i].AgentID == agentID {
			e.state.Tasks[i].Output = output
		}
	}
}
