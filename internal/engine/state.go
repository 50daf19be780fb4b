// Package engine implements the client-local swarm engine: the four-phase
// state machine driven one streaming call at a time, and the projector that
// rebuilds the same state from a server event stream.
package engine

import (
	"github.com/swarmoffice/orchestrator/internal/domain"
)

// Task is one agent's record within a run. Tasks are never removed, only
// status-transitioned.
type Task struct {
	AgentID string            `json:"agentId"`
	Label   string            `json:"label"`
	Status  domain.TaskStatus `json:"status"`
	Output  string            `json:"output"`
}

// RunState is the engine's full run state. Consumers only ever see deep
// copies; the engine is the single writer.
type RunState struct {
	Phase       domain.Phase         `json:"phase"`
	RunID       string               `json:"runId,omitempty"`
	Tasks       []Task               `json:"tasks"`
	Events      []domain.AgentEvent  `json:"events"`
	SwarmEvents []domain.SwarmEvent  `json:"swarmEvents"`
	FinalOutput string               `json:"finalOutput"`
	Error       string               `json:"error,omitempty"`
}

func (s RunState) clone() RunState {
	out := s
	out.Tasks = append([]Task(nil), s.Tasks...)
	out.Events = append([]domain.AgentEvent(nil), s.Events...)
	out.SwarmEvents = append([]domain.SwarmEvent(nil), s.SwarmEvents...)
	return out
}

// Config is the per-run configuration. Immutable for the run's duration.
type Config struct {
	Directive     string
	Depth         domain.DepthMode
	Model         string
	TokenCap      int
	ToolCallLimit int
	Integrations  domain.ToolPermissions
	DeviceID      string
}
