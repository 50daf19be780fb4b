package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swarmoffice/orchestrator/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ceo_runs (
			id TEXT PRIMARY KEY,
			goal TEXT NOT NULL,
			mode TEXT NOT NULL,
			model TEXT NOT NULL,
			agents TEXT NOT NULL,
			budgets TEXT NOT NULL,
			tool_permissions TEXT NOT NULL,
			status TEXT NOT NULL,
			phase TEXT NOT NULL,
			task_plan TEXT,
			agent_outputs TEXT,
			review_output TEXT,
			final_output TEXT,
			error TEXT,
			device_id TEXT,
			events TEXT,
			started_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ceo_runs_created ON ceo_runs(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.SwarmRun) error {
	agents, err := json.Marshal(run.Agents)
	if err != nil {
		return fmt.Errorf("failed to marshal agents: %w", err)
	}
	budgets, err := json.Marshal(run.Budgets)
	if err != nil {
		return fmt.Errorf("failed to marshal budgets: %w", err)
	}
	perms, err := json.Marshal(run.ToolPermissions)
	if err != nil {
		return fmt.Errorf("failed to marshal tool permissions: %w", err)
	}

	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ceo_runs (id, goal, mode, model, agents, budgets, tool_permissions,
			status, phase, device_id, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Goal, string(run.Mode), run.Model, string(agents), string(budgets),
		string(perms), string(run.Status), string(run.Phase), nullable(run.DeviceID),
		run.StartedAt, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.SwarmRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, goal, mode, model, agents, budgets, tool_permissions, status, phase,
			task_plan, agent_outputs, review_output, final_output, error, device_id,
			events, started_at, completed_at, created_at, updated_at
		FROM ceo_runs WHERE id = ?`, id)

	var run domain.SwarmRun
	var agents, budgets, perms string
	var taskPlan, outputs, review, final, errMsg, deviceID, events sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&run.ID, &run.Goal, &run.Mode, &run.Model, &agents, &budgets, &perms,
		&run.Status, &run.Phase, &taskPlan, &outputs, &review, &final, &errMsg, &deviceID,
		&events, &startedAt, &completedAt, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal([]byte(agents), &run.Agents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agents: %w", err)
	}
	if err := json.Unmarshal([]byte(budgets), &run.Budgets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal budgets: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &run.ToolPermissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool permissions: %w", err)
	}
	if taskPlan.Valid && taskPlan.String != "" {
		if err := json.Unmarshal([]byte(taskPlan.String), &run.TaskPlan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task plan: %w", err)
		}
	}
	if outputs.Valid && outputs.String != "" {
		if err := json.Unmarshal([]byte(outputs.String), &run.AgentOutputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agent outputs: %w", err)
		}
	}
	if events.Valid && events.String != "" {
		if err := json.Unmarshal([]byte(events.String), &run.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}
	run.ReviewOutput = review.String
	run.FinalOutput = final.String
	run.Error = errMsg.String
	run.DeviceID = deviceID.String
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal, mode, status, phase, created_at, completed_at
		FROM ceo_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []domain.RunSummary{}
	for rows.Next() {
		var sum domain.RunSummary
		var completedAt sql.NullTime
		if err := rows.Scan(&sum.ID, &sum.Goal, &sum.Mode, &sum.Status, &sum.Phase,
			&sum.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			sum.CompletedAt = &t
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) UpdatePhase(ctx context.Context, id string, phase domain.Phase) error {
	return s.exec(ctx, `UPDATE ceo_runs SET phase = ?, updated_at = ? WHERE id = ?`,
		string(phase), time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateTaskPlan(ctx context.Context, id string, plan []domain.TaskPlanEntry, phase domain.Phase) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal task plan: %w", err)
	}
	return s.exec(ctx, `UPDATE ceo_runs SET task_plan = ?, phase = ?, updated_at = ? WHERE id = ?`,
		string(data), string(phase), time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateAgentOutputs(ctx context.Context, id string, outputs map[string]string, phase domain.Phase) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal agent outputs: %w", err)
	}
	return s.exec(ctx, `UPDATE ceo_runs SET agent_outputs = ?, phase = ?, updated_at = ? WHERE id = ?`,
		string(data), string(phase), time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateReview(ctx context.Context, id string, review string, phase domain.Phase) error {
	return s.exec(ctx, `UPDATE ceo_runs SET review_output = ?, phase = ?, updated_at = ? WHERE id = ?`,
		review, string(phase), time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateCompleted(ctx context.Context, id string, finalOutput string, events []domain.SwarmEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	now := time.Now().UTC()
	return s.exec(ctx, `
		UPDATE ceo_runs SET final_output = ?, events = ?, status = ?, phase = ?,
			completed_at = ?, updated_at = ? WHERE id = ?`,
		finalOutput, string(data), string(domain.RunStatusComplete),
		string(domain.PhaseComplete), now, now, id)
}

func (s *SQLiteStore) UpdateFailed(ctx context.Context, id string, errMsg string) error {
	now := time.Now().UTC()
	return s.exec(ctx, `
		UPDATE ceo_runs SET error = ?, status = ?, phase = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		errMsg, string(domain.RunStatusError), string(domain.PhaseAborted), now, now, id)
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found")
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
