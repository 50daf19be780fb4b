package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxTokenCeiling is the hard upper bound on the per-run token cap. A run
// never exceeds it regardless of the configured budget.
const MaxTokenCeiling = 16384

// Budgets are the per-run resource limits.
type Budgets struct {
	MaxTokens    int `json:"maxTokens"`
	MaxToolCalls int `json:"maxToolCalls"`
}

// ToolPermissions are the integration capability flags granted to a run.
type ToolPermissions struct {
	GitHub            bool `json:"github"`
	Slack             bool `json:"slack"`
	Docs              bool `json:"docs"`
	BrowserAutomation bool `json:"browserAutomation"`
}

// Capabilities returns the permission flags keyed by capability name.
func (p ToolPermissions) Capabilities() map[string]bool {
	return map[string]bool{
		"github":            p.GitHub,
		"slack":             p.Slack,
		"docs":              p.Docs,
		"browserAutomation": p.BrowserAutomation,
	}
}

// RunRequest is the run-start request body.
type RunRequest struct {
	Goal            string          `json:"goal"`
	Mode            DepthMode       `json:"mode"`
	Agents          []string        `json:"agents"`
	Model           string          `json:"model"`
	Budgets         Budgets         `json:"budgets"`
	ToolPermissions ToolPermissions `json:"toolPermissions"`
	DeviceID        string          `json:"deviceId,omitempty"`
}

// Validate checks the required run request fields.
func (r *RunRequest) Validate() error {
	if strings.TrimSpace(r.Goal) == "" {
		return fmt.Errorf("goal is required")
	}
	if r.Mode != "" && !r.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", r.Mode)
	}
	return nil
}

// TaskPlanEntry is one agent's slot in the persisted task plan.
type TaskPlanEntry struct {
	AgentID string     `json:"agentId"`
	Label   string     `json:"label"`
	Status  TaskStatus `json:"status"`
}

// SwarmRun is the persisted run record.
type SwarmRun struct {
	ID              string            `json:"id"`
	Goal            string            `json:"goal"`
	Mode            DepthMode         `json:"mode"`
	Model           string            `json:"model"`
	Agents          []string          `json:"agents"`
	Budgets         Budgets           `json:"budgets"`
	ToolPermissions ToolPermissions   `json:"tool_permissions"`
	Status          RunStatus         `json:"status"`
	Phase           Phase             `json:"phase"`
	TaskPlan        []TaskPlanEntry   `json:"task_plan,omitempty"`
	AgentOutputs    map[string]string `json:"agent_outputs,omitempty"`
	ReviewOutput    string            `json:"review_output,omitempty"`
	FinalOutput     string            `json:"final_output,omitempty"`
	Error           string            `json:"error,omitempty"`
	DeviceID        string            `json:"device_id,omitempty"`
	Events          []SwarmEvent      `json:"events,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RunSummary is the listing projection of a run record.
type RunSummary struct {
	ID          string     `json:"id"`
	Goal        string     `json:"goal"`
	Mode        DepthMode  `json:"mode"`
	Status      RunStatus  `json:"status"`
	Phase       Phase      `json:"phase"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
