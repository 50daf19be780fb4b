// Package store provides persistence for swarm run records.
package store

import (
	"context"

	"github.com/swarmoffice/orchestrator/internal/domain"
)

// Store is the run persistence interface.
type Store interface {
	// CreateRun inserts the run record before phase 1 begins.
	CreateRun(ctx context.Context, run *domain.SwarmRun) error

	// GetRun fetches a run by id; returns (nil, nil) when absent.
	GetRun(ctx context.Context, id string) (*domain.SwarmRun, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// UpdatePhase advances the persisted phase.
	UpdatePhase(ctx context.Context, id string, phase domain.Phase) error

	// UpdateTaskPlan stores the task plan and advances the phase.
	UpdateTaskPlan(ctx context.Context, id string, plan []domain.TaskPlanEntry, phase domain.Phase) error

	// UpdateAgentOutputs stores the per-agent outputs and advances the phase.
	UpdateAgentOutputs(ctx context.Context, id string, outputs map[string]string, phase domain.Phase) error

	// UpdateReview stores the review output and advances the phase.
	UpdateReview(ctx context.Context, id string, review string, phase domain.Phase) error

	// UpdateCompleted marks the run complete with its final output and the
	// retained event log, setting completed_at.
	UpdateCompleted(ctx context.Context, id string, finalOutput string, events []domain.SwarmEvent) error

	// UpdateFailed marks the run errored with the failure message, setting
	// completed_at.
	UpdateFailed(ctx context.Context, id string, errMsg string) error

	Close() error
}
