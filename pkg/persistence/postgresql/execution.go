package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
)

// ExecutionRepository handles execution audit-trail database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , workflow_id
  , user_id
  , status
  , started_at
  , completed_at
  , trigger_input
  , result
  , execution_log
  , error
`

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerInput, err := json.Marshal(execution.TriggerInput)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger input: %w", err)
	}

	executionLog, err := marshalLog(execution.ExecutionLog)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_executions
			(id, workflow_id, user_id, status, started_at, trigger_input, execution_log)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, execution.UserID,
		string(execution.Status), execution.StartedAt, triggerInput, executionLog)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE workflow_id = $1 ORDER BY started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) MarkCompleted(ctx context.Context, id string, result map[string]any, log []models.ExecutionLogEntry) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	executionLog, err := marshalLog(log)
	if err != nil {
		return err
	}

	return r.finish(ctx, id, models.ExecutionStatusCompleted, resultJSON, executionLog, "")
}

func (r *ExecutionRepository) MarkFailed(ctx context.Context, id string, errMsg string, log []models.ExecutionLogEntry) error {
	executionLog, err := marshalLog(log)
	if err != nil {
		return err
	}

	return r.finish(ctx, id, models.ExecutionStatusFailed, nil, executionLog, errMsg)
}

func (r *ExecutionRepository) finish(ctx context.Context, id string, status models.ExecutionStatus, result, executionLog []byte, errMsg string) error {
	query := `
		UPDATE workflow_executions
		SET status = $2, completed_at = $3, result = $4, execution_log = $5, error = NULLIF($6, '')
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		id, string(status), time.Now().UTC(), result, executionLog, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish execution %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func marshalLog(log []models.ExecutionLogEntry) ([]byte, error) {
	if log == nil {
		log = []models.ExecutionLogEntry{}
	}

	payload, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution log: %w", err)
	}

	return payload, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		status       string
		completedAt  sql.NullTime
		triggerInput []byte
		result       []byte
		executionLog []byte
		errMsg       sql.NullString
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &execution.UserID,
		&status, &execution.StartedAt, &completedAt, &triggerInput, &result,
		&executionLog, &errMsg)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if errMsg.Valid {
		execution.Error = errMsg.String
	}

	if len(triggerInput) > 0 {
		if err := json.Unmarshal(triggerInput, &execution.TriggerInput); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger input: %w", err)
		}
	}

	if len(result) > 0 {
		if err := json.Unmarshal(result, &execution.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
		}
	}

	if len(executionLog) > 0 {
		if err := json.Unmarshal(executionLog, &execution.ExecutionLog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
		}
	}

	return &execution, nil
}
