package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations. The graph
// content is stored as one JSONB column.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , user_id
  , name
  , deployed
  , content
  , created_at
  , updated_at
`

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE user_id = $1 ORDER BY created_at DESC`

	return r.queryWorkflows(ctx, query, userID)
}

func (r *WorkflowRepository) ListDeployed(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE deployed ORDER BY created_at DESC`

	return r.queryWorkflows(ctx, query)
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	content, err := json.Marshal(workflow.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow content: %w", err)
	}

	query := `
		INSERT INTO workflows (id, user_id, name, deployed, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			deployed = EXCLUDED.deployed,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.UserID, workflow.Name, workflow.Deployed,
		content, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// UpdateNodeOutput writes lastOutput/lastExecutedAt into the matching node's
// data within the JSONB content, without rewriting the whole graph.
func (r *WorkflowRepository) UpdateNodeOutput(ctx context.Context, workflowID, nodeID string, output map[string]any) error {
	payload, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal node output: %w", err)
	}

	query := `
		UPDATE workflows
		SET content = jsonb_set(content, ARRAY['nodes', elem.idx::text, 'data'],
				COALESCE(elem.value -> 'data', '{}'::jsonb)
					|| jsonb_build_object('lastOutput', $3::jsonb, 'lastExecutedAt', to_jsonb(NOW()))),
			updated_at = NOW()
		FROM (
			SELECT (idx - 1) AS idx, value
			FROM workflows, jsonb_array_elements(content -> 'nodes') WITH ORDINALITY AS n(value, idx)
			WHERE workflows.id = $1 AND n.value ->> 'id' = $2
		) AS elem
		WHERE workflows.id = $1
	`

	result, err := r.db.ExecContext(ctx, query, workflowID, nodeID, payload)
	if err != nil {
		return fmt.Errorf("failed to update node output for %s/%s: %w", workflowID, nodeID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		content  []byte
	)

	err := row.Scan(&workflow.ID, &workflow.UserID, &workflow.Name,
		&workflow.Deployed, &content, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, &workflow.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow content: %w", err)
	}

	return &workflow, nil
}
