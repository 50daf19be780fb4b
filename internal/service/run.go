package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/domain"
	"github.com/swarmoffice/orchestrator/internal/llm"
	"github.com/swarmoffice/orchestrator/internal/protocol"
)

// EmitFunc receives each wire event as the protocol produces it.
type EmitFunc func(event domain.SwarmEvent)

// preview truncates text for event payloads.
func preview(text string, n int) string {
	if len(text) > n {
		return text[:n]
	}
	return text
}

// CreateRun validates the request, applies server-side defaults, gates the
// requested integration permissions through policy, and persists the run
// record. Returns the record plus the names of denied capabilities.
func (s *Service) CreateRun(ctx context.Context, req *domain.RunRequest) (*domain.SwarmRun, []string, error) {
	if req.Mode == "" {
		req.Mode = domain.DepthBalanced
	}
	if req.Model == "" {
		req.Model = s.config.DefaultModel
	}
	if len(req.Agents) == 0 {
		req.Agents = s.registry.IDs()
	}
	if req.Budgets.MaxTokens <= 0 {
		req.Budgets.MaxTokens = s.config.DefaultMaxTokens
	}
	if req.Budgets.MaxToolCalls <= 0 {
		req.Budgets.MaxToolCalls = 20
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	seen := map[string]bool{}
	for _, id := range req.Agents {
		if _, ok := s.registry.FindByID(id); !ok {
			return nil, nil, fmt.Errorf("unknown agent %q", id)
		}
		if seen[id] {
			return nil, nil, fmt.Errorf("duplicate agent %q", id)
		}
		seen[id] = true
	}

	granted, denied, err := s.policy.Sanitize(ctx, req.ToolPermissions, req.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to evaluate tool policy: %w", err)
	}

	run := &domain.SwarmRun{
		ID:              "run_" + uuid.New().String()[:8],
		Goal:            strings.TrimSpace(req.Goal),
		Mode:            req.Mode,
		Model:           req.Model,
		Agents:          req.Agents,
		Budgets:         req.Budgets,
		ToolPermissions: granted,
		Status:          domain.RunStatusRunning,
		Phase:           domain.PhaseStrategicBreakdown,
		DeviceID:        req.DeviceID,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, denied, nil
}

// ExecuteRun drives the four-phase protocol for a created run, emitting
// every wire event and updating the persisted record as each phase
// completes. Any failure persists status=error; the caller is responsible
// for terminating the stream with the sentinel in all cases.
func (s *Service) ExecuteRun(ctx context.Context, run *domain.SwarmRun, denied []string, emit EmitFunc) error {
	events := make([]domain.SwarmEvent, 0, 16)
	record := func(ev domain.SwarmEvent) {
		events = append(events, ev)
		emit(ev)
	}

	for _, capability := range denied {
		ev := domain.NewSwarmEvent(domain.EventToolCall, agents.OrchestratorActor,
			fmt.Sprintf("%s integration disabled by policy", capability), nil)
		ev.Severity = domain.SeverityWarn
		record(ev)
	}

	perCall := domain.PerCallBudget(run.Budgets.MaxTokens, len(run.Agents))

	err := s.runPhases(ctx, run, perCall, record)
	if err != nil {
		ev := domain.NewSwarmEvent(domain.EventError, agents.OrchestratorActor,
			fmt.Sprintf("Error: %s", err.Error()), nil)
		ev.Severity = domain.SeverityError
		record(ev)
		if dbErr := s.store.UpdateFailed(context.WithoutCancel(ctx), run.ID, err.Error()); dbErr != nil {
			log.Printf("ERROR: failed to persist run failure: %v", dbErr)
		}
		return err
	}

	if dbErr := s.store.UpdateCompleted(ctx, run.ID, run.FinalOutput, events); dbErr != nil {
		log.Printf("ERROR: failed to persist run completion: %v", dbErr)
	}
	return nil
}

func (s *Service) runPhases(ctx context.Context, run *domain.SwarmRun, perCall int, record EmitFunc) error {
	team := make([]agents.Profile, 0, len(run.Agents))
	for _, id := range run.Agents {
		p, _ := s.registry.FindByID(id)
		team = append(team, p)
	}

	// Phase A: strategic breakdown, in the orchestrator's voice.
	record(phaseEvent(domain.PhaseStrategicBreakdown, "Phase A: Strategic Breakdown — decomposing directive"))

	breakdown, err := s.callAI(ctx, run.Model, protocol.BreakdownSystem, protocol.BreakdownPrompt(run.Goal, run.Mode, team), perCall)
	if err != nil {
		return err
	}
	record(domain.NewSwarmEvent(domain.EventAgentMessage, agents.OrchestratorActor,
		"Task plan created", map[string]interface{}{"breakdown": preview(breakdown, 500)}))

	plan := make([]domain.TaskPlanEntry, len(team))
	for i, p := range team {
		plan[i] = domain.TaskPlanEntry{AgentID: p.ID, Label: p.Role, Status: domain.TaskPending}
	}
	run.TaskPlan = plan
	if err := s.store.UpdateTaskPlan(ctx, run.ID, plan, domain.PhaseParallelWork); err != nil {
		log.Printf("ERROR: failed to persist task plan: %v", err)
	}

	// Phase B: each agent in fixed order, serialized to respect gateway
	// rate limits.
	record(phaseEvent(domain.PhaseParallelWork, "Phase B: Parallel Execution — dispatching to workers"))

	outputs := make(map[string]string, len(team))
	for _, p := range team {
		record(domain.NewSwarmEvent(domain.EventAgentMessage, p.ID, fmt.Sprintf("%s starting work...", p.ID), nil))

		output, err := s.callAI(ctx, run.Model, p.SystemPrompt, protocol.WorkPrompt(run.Goal, breakdown, p.ID, run.Mode), perCall)
		if err != nil {
			return err
		}
		outputs[p.ID] = output
		record(domain.NewSwarmEvent(domain.EventAgentMessage, p.ID, fmt.Sprintf("%s completed work", p.ID),
			map[string]interface{}{"outputPreview": preview(output, 200)}))
	}
	run.AgentOutputs = outputs
	if err := s.store.UpdateAgentOutputs(ctx, run.ID, outputs, domain.PhaseInternalReview); err != nil {
		log.Printf("ERROR: failed to persist agent outputs: %v", err)
	}

	// Phase C: internal review, advisory only.
	record(phaseEvent(domain.PhaseInternalReview, "Phase C: Internal Review — agents cross-review"))

	allOutputs := protocol.JoinOutputs(outputs, run.Agents)
	review, err := s.callAI(ctx, run.Model, protocol.ReviewSystem, protocol.ReviewPrompt(run.Goal, allOutputs), perCall)
	if err != nil {
		return err
	}
	run.ReviewOutput = review
	record(domain.NewSwarmEvent(domain.EventAgentMessage, agents.OrchestratorActor,
		"Internal review complete", map[string]interface{}{"reviewPreview": preview(review, 200)}))
	if err := s.store.UpdateReview(ctx, run.ID, review, domain.PhaseConsolidation); err != nil {
		log.Printf("ERROR: failed to persist review: %v", err)
	}

	// Phase D: consolidation, at double the per-call allocation.
	record(phaseEvent(domain.PhaseConsolidation, "Phase D: Consolidation — producing executive output"))

	finalOutput, err := s.callAI(ctx, run.Model, protocol.ConsolidationSystem,
		protocol.ConsolidationPrompt(run.Goal, allOutputs, review), perCall*2)
	if err != nil {
		return err
	}
	run.FinalOutput = finalOutput
	run.Phase = domain.PhaseComplete

	record(domain.NewSwarmEvent(domain.EventFinal, agents.OrchestratorActor, "Executive output ready",
		map[string]interface{}{"runId": run.ID, "finalOutput": finalOutput}))
	return nil
}

func (s *Service) callAI(ctx context.Context, model, system, prompt string, maxTokens int) (string, error) {
	temperature := 0.7
	req := &llm.ChatCompletionRequest{
		Model: model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	resp, err := s.llm.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

func phaseEvent(phase domain.Phase, trace string) domain.SwarmEvent {
	return domain.NewSwarmEvent(domain.EventPhase, agents.OrchestratorActor, trace,
		map[string]interface{}{"phase": string(phase)})
}

// GetRun fetches a persisted run record.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.SwarmRun, error) {
	return s.store.GetRun(ctx, id)
}

// ListRuns returns recent run summaries.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	return s.store.ListRuns(ctx, limit)
}
