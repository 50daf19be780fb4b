// Package service implements the authoritative server-side four-phase
// swarm protocol.
package service

import (
	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/config"
	"github.com/swarmoffice/orchestrator/internal/llm"
	"github.com/swarmoffice/orchestrator/internal/policy"
	"github.com/swarmoffice/orchestrator/internal/store"
)

// Service owns run creation, phase execution, and persistence.
type Service struct {
	store    store.Store
	llm      *llm.Client
	registry *agents.Registry
	policy   *policy.Engine
	config   *config.Config
}

// New wires the service dependencies.
func New(st store.Store, llmClient *llm.Client, registry *agents.Registry, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:    st,
		llm:      llmClient,
		registry: registry,
		policy:   policyEngine,
		config:   cfg,
	}
}

// Registry exposes the agent catalog.
func (s *Service) Registry() *agents.Registry {
	return s.registry
}
