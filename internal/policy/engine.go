// Package policy gates integration permissions through an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/swarmoffice/orchestrator/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.integration_policy.decision"),
		rego.Module("integration_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate checks whether one capability is allowed for a run.
// Returns "allow" or "deny".
func (e *Engine) Evaluate(ctx context.Context, capability string, requested bool, mode domain.DepthMode) (string, error) {
	input := map[string]interface{}{
		"capability": capability,
		"requested":  requested,
		"mode":       string(mode),
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "deny", nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "deny", nil
}

// Sanitize evaluates every capability of the requested permission set and
// returns the granted set plus the names of capabilities that were denied
// despite being requested.
func (e *Engine) Sanitize(ctx context.Context, perms domain.ToolPermissions, mode domain.DepthMode) (domain.ToolPermissions, []string, error) {
	granted := domain.ToolPermissions{}
	var denied []string
	for capability, requested := range perms.Capabilities() {
		decision, err := e.Evaluate(ctx, capability, requested, mode)
		if err != nil {
			return domain.ToolPermissions{}, nil, err
		}
		allow := decision == "allow"
		switch capability {
		case "github":
			granted.GitHub = allow
		case "slack":
			granted.Slack = allow
		case "docs":
			granted.Docs = allow
		case "browserAutomation":
			granted.BrowserAutomation = allow
		}
		if requested && !allow {
			denied = append(denied, capability)
		}
	}
	return granted, denied, nil
}

// DefaultPolicy allows whatever the caller requested, except browser
// automation in fast mode, which cannot finish within a fast run's budget.
const DefaultPolicy = `
package integration_policy

default decision = "deny"

decision = "allow" {
	input.requested == true
	not restricted
}

restricted {
	input.capability == "browserAutomation"
	input.mode == "fast"
}
`
