package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
)

// ExecutionRepository stores one JSON document per execution under
// <root>/executions/<id>.json.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	if err := os.MkdirAll(er.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	return er.write(execution)
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	filePath := filepath.Clean(path.Join(er.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(er.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		execution, err := er.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	// Newest first, matching the API listing order.
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (er *ExecutionRepository) MarkCompleted(ctx context.Context, id string, result map[string]any, log []models.ExecutionLogEntry) error {
	execution, err := er.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.Result = result
	execution.ExecutionLog = log

	return er.write(execution)
}

func (er *ExecutionRepository) MarkFailed(ctx context.Context, id string, errMsg string, log []models.ExecutionLogEntry) error {
	execution, err := er.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &now
	execution.Error = errMsg
	execution.ExecutionLog = log

	return er.write(execution)
}

func (er *ExecutionRepository) write(execution *models.WorkflowExecution) error {
	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	return os.WriteFile(path.Join(er.dir(), execution.ID+".json"), data, 0600)
}
