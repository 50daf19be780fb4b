// Package protocol holds the four-phase prompt content shared by the
// server-side orchestrator and the client-local engine variant.
package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/domain"
)

// Orchestrator personas for the phases the CEO performs itself.
const (
	BreakdownSystem     = "You are KimiClaw, the supreme AI orchestrator and CEO of a multi-agent swarm."
	ReviewSystem        = "You are KimiClaw, reviewing your team's work as CEO."
	ConsolidationSystem = "You are KimiClaw. Produce a polished executive deliverable."
)

// depthInstruction tunes phase thoroughness without changing the protocol
// structure.
func depthInstruction(mode domain.DepthMode) string {
	switch mode {
	case domain.DepthFast:
		return "Favor speed: keep every output tight and immediately actionable."
	case domain.DepthDeep:
		return "Favor depth: explore alternatives and justify key choices."
	}
	return "Balance depth and speed."
}

// BreakdownPrompt asks for exactly one disjoint subtask per team member.
func BreakdownPrompt(goal string, mode domain.DepthMode, team []agents.Profile) string {
	members := make([]string, len(team))
	for i, p := range team {
		members[i] = fmt.Sprintf("%s (%s)", p.ID, p.Role)
	}
	return fmt.Sprintf(`Decompose this executive directive into exactly %d parallel subtasks, one per team member.

Team members: %s

Directive: %q
Depth mode: %s
%s

Format each subtask as:
**[Agent ID]**: [specific, actionable subtask description]

Be precise and ensure no overlap between subtasks.`,
		len(team), strings.Join(members, ", "), goal, mode, depthInstruction(mode))
}

// WorkPrompt constrains one agent to its own subtask from the breakdown.
func WorkPrompt(goal, breakdown, agentID string, mode domain.DepthMode) string {
	return fmt.Sprintf(`Based on the CEO's strategic breakdown, execute YOUR assigned subtask.

CEO Directive: %q
Strategic Plan:
%s

You are %s. Focus ONLY on your assigned subtask. Produce comprehensive, actionable output.
%s`, goal, breakdown, agentID, depthInstruction(mode))
}

// ReviewPrompt asks the CEO to critique all agent outputs.
func ReviewPrompt(goal, allOutputs string) string {
	return fmt.Sprintf(`As KimiClaw CEO, review all agent outputs for the directive: %q

%s

Identify conflicts, gaps, redundancies, and improvements. Provide a structured review with specific recommendations.`, goal, allOutputs)
}

// ConsolidationPrompt asks for the fixed-structure executive deliverable.
func ConsolidationPrompt(goal, allOutputs, review string) string {
	return fmt.Sprintf(`Produce the FINAL EXECUTIVE OUTPUT for: %q

Agent outputs:
%s

Review notes:
%s

Format as:
## Executive Summary
[2-3 sentence summary]

## Key Decisions
[Bullet list]

## Deliverables
[Numbered deliverables with details]

## Next Steps
[Recommended follow-up actions]

Be comprehensive but concise. This is the final deliverable for the CEO.`, goal, allOutputs, review)
}

// JoinOutputs concatenates agent outputs under labelled headers, in stable
// agent order, any stragglers sorted last.
func JoinOutputs(outputs map[string]string, order []string) string {
	ids := make([]string, 0, len(outputs))
	seen := map[string]bool{}
	for _, id := range order {
		if _, ok := outputs[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	rest := make([]string, 0)
	for id := range outputs {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	sections := make([]string, len(ids))
	for i, id := range ids {
		sections[i] = fmt.Sprintf("### %s\n%s", id, outputs[id])
	}
	return strings.Join(sections, "\n\n---\n\n")
}
