// Package agents provides the static catalog of swarm agent identities.
package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OrchestratorActor is the distinguished actor name used for phases the
// orchestrator performs itself (breakdown, review, consolidation).
const OrchestratorActor = "KimiClaw"

// Profile is the immutable identity of one swarm agent.
type Profile struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Role         string   `yaml:"role" json:"role"`
	Strengths    []string `yaml:"strengths" json:"strengths"`
	Description  string   `yaml:"description" json:"description"`
	Color        string   `yaml:"color" json:"color"`
	DeskIndex    int      `yaml:"deskIndex" json:"deskIndex"`
	SystemPrompt string   `yaml:"systemPrompt" json:"-"`
}

// Registry is a pure lookup table over agent profiles. Ordering is stable
// for UI rendering. The actor table maps wire-event actor labels to agent
// ids and is validated at construction time.
type Registry struct {
	profiles []Profile
	byID     map[string]Profile
	actors   map[string]string
}

// NewRegistry builds a registry from profiles plus extra actor aliases.
// Every profile id is also a valid actor label for itself.
func NewRegistry(profiles []Profile, aliases map[string]string) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one agent profile is required")
	}
	byID := make(map[string]Profile, len(profiles))
	actors := make(map[string]string, len(profiles)+len(aliases))
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("agent profile with empty id")
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", p.ID)
		}
		byID[p.ID] = p
		actors[p.ID] = p.ID
	}
	for label, id := range aliases {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("actor alias %q targets unknown agent %q", label, id)
		}
		actors[label] = id
	}
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return &Registry{profiles: out, byID: byID, actors: actors}, nil
}

// All returns the profiles in stable order.
func (r *Registry) All() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// IDs returns the agent ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		ids[i] = p.ID
	}
	return ids
}

// FindByID looks up a profile by agent id.
func (r *Registry) FindByID(id string) (Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// SystemPrompt returns the agent's role system-prompt, falling back to the
// first agent's prompt for unknown ids.
func (r *Registry) SystemPrompt(id string) string {
	if p, ok := r.byID[id]; ok && p.SystemPrompt != "" {
		return p.SystemPrompt
	}
	return r.profiles[0].SystemPrompt
}

// ResolveActor maps a wire-event actor label to an agent id. Unknown labels
// (including the orchestrator itself) resolve to the first agent, which
// fronts orchestrator activity in the UI.
func (r *Registry) ResolveActor(actor string) string {
	if id, ok := r.actors[actor]; ok {
		return id
	}
	return r.profiles[0].ID
}

// LoadRoster reads an agent roster from a YAML file.
func LoadRoster(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	var roster struct {
		Agents []Profile `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}
	if len(roster.Agents) == 0 {
		return nil, fmt.Errorf("roster file %s defines no agents", path)
	}
	return roster.Agents, nil
}
