// Package persistence provides the data storage abstraction for workflows,
// executions and credentials.
package persistence

import (
	"context"
	"errors"

	"github.com/zynthex/zynthex/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	CredentialRepository() CredentialRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, userID string) ([]*models.Workflow, error)
	ListDeployed(ctx context.Context) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// UpdateNodeOutput writes a node's lastOutput/lastExecutedAt into the
	// stored workflow content so the editor can show live results.
	UpdateNodeOutput(ctx context.Context, workflowID, nodeID string, output map[string]any) error
}

type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)

	// MarkCompleted transitions a running execution to its terminal
	// completed state with the full result and per-node log.
	MarkCompleted(ctx context.Context, id string, result map[string]any, log []models.ExecutionLogEntry) error

	// MarkFailed transitions a running execution to failed with the error
	// message and the partial log collected so far.
	MarkFailed(ctx context.Context, id string, errMsg string, log []models.ExecutionLogEntry) error
}

type CredentialRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	Save(ctx context.Context, credential *models.Credential) error
}
