package domain

import (
	"time"

	"github.com/google/uuid"
)

// SwarmEvent is the canonical wire-level orchestration event streamed from
// the server to the caller. AgentEvent is derived from it client-side.
type SwarmEvent struct {
	Type      SwarmEventType         `json:"type"`
	Actor     string                 `json:"actor"`
	Ts        int64                  `json:"ts"` // Unix milliseconds
	Severity  Severity               `json:"severity"`
	SafeTrace string                 `json:"safeTrace"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewSwarmEvent builds an info-severity event with the current timestamp.
func NewSwarmEvent(t SwarmEventType, actor, safeTrace string, payload map[string]interface{}) SwarmEvent {
	return SwarmEvent{
		Type:      t,
		Actor:     actor,
		Ts:        time.Now().UnixMilli(),
		Severity:  SeverityInfo,
		SafeTrace: safeTrace,
		Payload:   payload,
	}
}

// AgentEvent is the UI-facing per-agent event. Retained in a capped ring,
// most recent entries only.
type AgentEvent struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	AgentID   string         `json:"agentId"`
	Type      AgentEventType `json:"type"`
	Label     string         `json:"label"`
	Detail    string         `json:"detail,omitempty"`
}

// NewAgentEvent builds an agent event with a fresh id and the current timestamp.
func NewAgentEvent(agentID string, t AgentEventType, label string) AgentEvent {
	return AgentEvent{
		ID:        "evt_" + uuid.New().String()[:8],
		Timestamp: time.Now().UnixMilli(),
		AgentID:   agentID,
		Type:      t,
		Label:     label,
	}
}
