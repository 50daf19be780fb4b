// Package domain defines the core domain models for the swarm orchestrator.
package domain

// Phase is the position of a run in the four-phase state machine.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseStrategicBreakdown Phase = "strategic-breakdown"
	PhaseParallelWork       Phase = "parallel-work"
	PhaseInternalReview     Phase = "internal-review"
	PhaseConsolidation      Phase = "consolidation"
	PhaseComplete           Phase = "complete"
	PhasePaused             Phase = "paused"
	PhaseAborted            Phase = "aborted"
)

// Terminal reports whether no further transitions are possible from p.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseAborted
}

// PhaseLabels maps phases to their display labels.
var PhaseLabels = map[Phase]string{
	PhaseIdle:               "Idle",
	PhaseStrategicBreakdown: "Phase A — Strategy",
	PhaseParallelWork:       "Phase B — Execution",
	PhaseInternalReview:     "Phase C — Review",
	PhaseConsolidation:      "Phase D — Consolidation",
	PhaseComplete:           "Executive Output Ready",
	PhasePaused:             "Paused",
	PhaseAborted:            "Aborted",
}

// RunStatus is the persisted status of a run record.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusError    RunStatus = "error"
)

// DepthMode controls phase thoroughness, not structure.
type DepthMode string

const (
	DepthFast     DepthMode = "fast"
	DepthBalanced DepthMode = "balanced"
	DepthDeep     DepthMode = "deep"
)

// Valid reports whether the mode is one of the known depth modes.
func (m DepthMode) Valid() bool {
	switch m {
	case DepthFast, DepthBalanced, DepthDeep:
		return true
	}
	return false
}

// TaskStatus is the lifecycle of one agent's task within a run.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskError   TaskStatus = "error"
)

// Severity classifies a wire event.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// SwarmEventType is the type of a wire-level orchestration event.
type SwarmEventType string

const (
	EventPhase        SwarmEventType = "phase"
	EventAgentMessage SwarmEventType = "agent_message"
	EventToolCall     SwarmEventType = "tool_call"
	EventToolResult   SwarmEventType = "tool_result"
	EventError        SwarmEventType = "error"
	EventFinal        SwarmEventType = "final"
)

// AgentEventType is the type of a UI-facing agent event.
type AgentEventType string

const (
	AgentEventPlanning   AgentEventType = "planning"
	AgentEventResearch   AgentEventType = "research"
	AgentEventToolCall   AgentEventType = "tool_call"
	AgentEventGenerating AgentEventType = "generating"
	AgentEventReviewing  AgentEventType = "reviewing"
	AgentEventComplete   AgentEventType = "complete"
	AgentEventError      AgentEventType = "error"
)

// ActivityHint is the coarse ambient activity level emitted alongside phase
// transitions. Several phases can map to the same hint.
type ActivityHint string

const (
	ActivityIdle          ActivityHint = "idle"
	ActivityCollaboration ActivityHint = "collaboration"
	ActivityProcessing    ActivityHint = "processing"
	ActivitySuccess       ActivityHint = "success"
)

// HintForPhase maps a phase to its ambient activity hint.
func HintForPhase(p Phase) ActivityHint {
	switch p {
	case PhaseStrategicBreakdown, PhaseInternalReview:
		return ActivityCollaboration
	case PhaseParallelWork, PhaseConsolidation:
		return ActivityProcessing
	case PhaseComplete:
		return ActivitySuccess
	}
	return ActivityIdle
}

// CancelReason says why an in-flight run stopped. It is carried as a value
// with the terminal transition instead of being inferred from error types.
type CancelReason string

const (
	CancelNone      CancelReason = ""
	CancelUserAbort CancelReason = "user-abort"
	CancelTimeout   CancelReason = "timeout"
	CancelFailure   CancelReason = "failure"
)
