package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/domain"
	"github.com/swarmoffice/orchestrator/internal/llm"
	"github.com/swarmoffice/orchestrator/internal/protocol"
)

const (
	agentEventCap = 80
	swarmEventCap = 100
	snapshotBuf   = 64
)

// successDecay is how long the success hint lingers before falling back to
// idle. Overridden in tests.
var successDecay = 5 * time.Second

// ChatStreamer is the generative backend dependency of the local engine.
type ChatStreamer interface {
	StreamChat(ctx context.Context, opts llm.StreamOptions)
}

// Engine is a single-run swarm engine. Construct a fresh instance per run;
// a second Run on a busy instance is silently rejected. Consumers observe
// progress through the snapshot and hint channels.
type Engine struct {
	registry *agents.Registry
	chat     ChatStreamer

	mu          sync.Mutex
	state       RunState
	running     bool
	resumePhase domain.Phase
	reason      domain.CancelReason
	cancel      context.CancelFunc
	decay       *time.Timer

	gate      *gate
	snapshots chan RunState
	hints     chan domain.ActivityHint
}

// New creates an engine over the given registry and streaming backend.
func New(registry *agents.Registry, chat ChatStreamer) *Engine {
	return &Engine{
		registry:  registry,
		chat:      chat,
		state:     RunState{Phase: domain.PhaseIdle},
		gate:      newGate(),
		snapshots: make(chan RunState, snapshotBuf),
		hints:     make(chan domain.ActivityHint, 8),
	}
}

// Snapshots delivers a full state copy after every mutation. Sends never
// block: a slow consumer misses intermediate snapshots, never the order.
func (e *Engine) Snapshots() <-chan RunState {
	return e.snapshots
}

// Hints delivers the coarse ambient activity level.
func (e *Engine) Hints() <-chan domain.ActivityHint {
	return e.hints
}

// State returns a copy of the current run state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// publish pushes a snapshot. Callers must hold e.mu.
func (e *Engine) publish() {
	select {
	case e.snapshots <- e.state.clone():
	default:
	}
}

func (e *Engine) setHint(h domain.ActivityHint) {
	select {
	case e.hints <- h:
	default:
	}
}

// scheduleDecay drops the hint back to idle after the success linger.
// Callers must hold e.mu.
func (e *Engine) scheduleDecay() {
	if e.decay != nil {
		e.decay.Stop()
	}
	e.decay = time.AfterFunc(successDecay, func() {
		e.setHint(domain.ActivityIdle)
	})
}

// Abort cancels the in-flight run, forces the aborted phase, and resets the
// ambient hint. Safe to call repeatedly and after completion (no-op once
// terminal).
func (e *Engine) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase.Terminal() {
		return
	}
	e.reason = domain.CancelUserAbort
	if e.cancel != nil {
		e.cancel()
	}
	e.gate.Resume()
	e.state.Phase = domain.PhaseAborted
	e.setHint(domain.ActivityIdle)
	e.publish()
}

// Pause suspends the run at the next work-unit boundary.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.state.Phase.Terminal() || e.state.Phase == domain.PhasePaused {
		return
	}
	e.resumePhase = e.state.Phase
	e.state.Phase = domain.PhasePaused
	e.gate.Pause()
	e.publish()
}

// Resume continues a paused run.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase != domain.PhasePaused {
		return
	}
	e.state.Phase = e.resumePhase
	e.gate.Resume()
	e.publish()
}

// Run executes the four-phase protocol locally, one streaming call per
// step, and returns the terminal state. A run already in flight makes Run
// return the current state without starting another.
func (e *Engine) Run(ctx context.Context, cfg Config) RunState {
	e.mu.Lock()
	if e.running {
		st := e.state.clone()
		e.mu.Unlock()
		return st
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

	err := e.phases(runCtx, cfg)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	switch {
	case e.state.Phase.Terminal():
		// Abort already finalized the state.
	case err != nil:
		e.state.Phase = domain.PhaseAborted
		if e.reason != domain.CancelUserAbort {
			e.reason = domain.CancelFailure
			e.state.Error = err.Error()
		}
		e.setHint(domain.ActivityIdle)
		e.publish()
	default:
		e.state.Phase = domain.PhaseComplete
		e.setHint(domain.ActivitySuccess)
		e.scheduleDecay()
		e.publish()
	}
	return e.state.clone()
}

// resetState replaces the whole state object for a new run. Callers must
// hold e.mu.
func (e *Engine) resetState() {
	profiles := e.registry.All()
	tasks := make([]Task, len(profiles))
	for i, p := range profiles {
		tasks[i] = Task{AgentID: p.ID, Label: p.Role, Status: domain.TaskPending}
	}
	e.state = RunState{
		Phase: domain.PhaseStrategicBreakdown,
		Tasks: tasks,
	}
}

// checkpoint is the boundary between work units: it honors pause and
// cancellation.
func (e *Engine) checkpoint(ctx context.Context) error {
	return e.gate.Wait(ctx)
}

func (e *Engine) phases(ctx context.Context, cfg Config) error {
	orchestrator := e.registry.ResolveActor(agents.OrchestratorActor)
	profiles := e.registry.All()
	budget := domain.PerCallBudget(cfg.TokenCap, len(profiles))

	// Phase A
	e.transition(domain.PhaseStrategicBreakdown, "Phase A: Strategic Breakdown — decomposing directive",
		orchestrator, domain.AgentEventPlanning)

	breakdown, err := e.streamStep(ctx, orchestrator, protocol.BreakdownSystem,
		protocol.BreakdownPrompt(cfg.Directive, cfg.Depth, profiles), cfg.Model, budget, nil)
	if err != nil {
		return err
	}
	e.recordSwarmEvent(domain.NewSwarmEvent(domain.EventAgentMessage, agents.OrchestratorActor,
		"Task plan created", nil))
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	// Phase B
	e.transition(domain.PhaseParallelWork, "Phase B: Parallel Execution — dispatching to workers",
		orchestrator, domain.AgentEventPlanning)

	for i := range profiles {
		p := profiles[i]
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		e.setTaskStatus(p.ID, domain.TaskRunning)
		e.recordSwarmEvent(domain.NewSwarmEvent(domain.EventAgentMessage, p.ID, p.ID+" starting work...", nil))

		output, err := e.streamStep(ctx, p.ID, p.SystemPrompt,
			protocol.WorkPrompt(cfg.Directive, breakdown, p.ID, cfg.Depth), cfg.Model, budget, func(delta string) {
				e.appendTaskOutput(p.ID, delta)
			})
		if err != nil {
			return err
		}
		e.finishTask(p.ID, output)
		e.recordSwarmEvent(domain.NewSwarmEvent(domain.EventAgentMessage, p.ID, p.ID+" completed work", nil))
	}
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	// Phase C
	e.transition(domain.PhaseInternalReview, "Phase C: Internal Review — agents cross-review",
		orchestrator, domain.AgentEventReviewing)

	order := make([]string, len(profiles))
	for i, p := range profiles {
		order[i] = p.ID
	}
	allOutputs := protocol.JoinOutputs(e.taskOutputs(), order)

	review, err := e.streamStep(ctx, orchestrator, protocol.ReviewSystem,
		protocol.ReviewPrompt(cfg.Directive, allOutputs), cfg.Model, budget, nil)
	if err != nil {
		return err
	}
	e.recordSwarmEvent(domain.NewSwarmEvent(domain.EventAgentMessage, agents.OrchestratorActor,
		"Internal review complete", nil))
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	// Phase D
	e.transition(domain.PhaseConsolidation, "Phase D: Consolidation — producing executive output",
		orchestrator, domain.AgentEventGenerating)

	finalOutput, err := e.streamStep(ctx, orchestrator, protocol.ConsolidationSystem,
		protocol.ConsolidationPrompt(cfg.Directive, allOutputs, review), cfg.Model, budget*2, nil)
	if err != nil {
		return err
	}
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.state.FinalOutput = finalOutput
	e.recordSwarmEventLocked(domain.NewSwarmEvent(domain.EventFinal, agents.OrchestratorActor,
		"Executive output ready", nil))
	e.recordAgentEventLocked(domain.NewAgentEvent(orchestrator, domain.AgentEventComplete, "Executive output ready"))
	e.publish()
	e.mu.Unlock()
	return nil
}

// streamStep issues one streaming generative call and accumulates its
// deltas. A cancellation surfaces through ctx at the next checkpoint, not
// as an error here.
func (e *Engine) streamStep(ctx context.Context, agentID, system, prompt, model string, maxTokens int, onDelta func(string)) (string, error) {
	if err := e.checkpoint(ctx); err != nil {
		return "", err
	}

	var sb strings.Builder
	var failure string
	e.chat.StreamChat(ctx, llm.StreamOptions{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		AgentID:   agentID,
		Model:     model,
		MaxTokens: maxTokens,
		OnDelta: func(text string) {
			sb.WriteString(text)
			if onDelta != nil {
				onDelta(text)
			}
		},
		OnEvent: func(ev domain.AgentEvent) {
			e.recordAgentEvent(ev)
		},
		OnDone:  func() {},
		OnError: func(msg string) { failure = msg },
	})
	if failure != "" {
		return "", &stepError{message: failure}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// stepError carries a streaming failure message verbatim.
type stepError struct {
	message string
}

func (e *stepError) Error() string { return e.message }

// transition moves the state machine to a new phase and emits the phase
// wire event, the matching agent event, and the ambient hint.
func (e *Engine) transition(phase domain.Phase, trace, agentID string, evType domain.AgentEventType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase.Terminal() {
		return
	}
	e.state.Phase = phase
	e.recordSwarmEventLocked(domain.SwarmEvent{
		Type:      domain.EventPhase,
		Actor:     agents.OrchestratorActor,
		Ts:        time.Now().UnixMilli(),
		Severity:  domain.SeverityInfo,
		SafeTrace: trace,
		Payload:   map[string]interface{}{"phase": string(phase)},
	})
	ev := domain.NewAgentEvent(agentID, evType, trace)
	ev.Detail = domain.PhaseLabels[phase]
	e.recordAgentEventLocked(ev)
	e.setHint(domain.HintForPhase(phase))
	e.publish()
}

func (e *Engine) recordAgentEvent(ev domain.AgentEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordAgentEventLocked(ev)
	e.publish()
}

func (e *Engine) recordAgentEventLocked(ev domain.AgentEvent) {
	if n := len(e.state.Events); n >= agentEventCap {
		e.state.Events = e.state.Events[n-agentEventCap+1:]
	}
	e.state.Events = append(e.state.Events, ev)
}

func (e *Engine) recordSwarmEvent(ev domain.SwarmEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordSwarmEventLocked(ev)
	e.publish()
}

func (e *Engine) recordSwarmEventLocked(ev domain.SwarmEvent) {
	if n := len(e.state.SwarmEvents); n >= swarmEventCap {
		e.state.SwarmEvents = e.state.SwarmEvents[n-swarmEventCap+1:]
	}
	e.state.SwarmEvents = append(e.state.SwarmEvents, ev)
}

func (e *Engine) setTaskStatus(agentID string, status domain.TaskStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Tasks {
		if e.state.Tasks[i].AgentID == agentID {
			e.state.Tasks[i].Status = status
		}
	}
	e.publish()
}

func (e *Engine) appendTaskOutput(agentID, delta string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Tasks {
		if e.state.Tasks[i].AgentID == agentID {
			e.state.Tasks[i].Output += delta
		}
	}
	e.publish()
}

func (e *Engine) finishTask(agentID, output string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Tasks {
		if e.state.Tasks[i].AgentID == agentID {
			e.state.Tasks[i].Status = domain.TaskDone
			e.state.Tasks[i].Output = output
		}
	}
	e.publish()
}

func (e *Engine) taskOutputs() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.state.Tasks))
	for _, t := range e.state.Tasks {
		if t.Output != "" {
			out[t.AgentID] = t.Output
		}
	}
	return out
}
