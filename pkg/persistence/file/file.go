// Package file provides file-based persistence for workflows, executions and
// credentials. One JSON document per record, suited to single-node setups
// and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/zynthex/zynthex/pkg/persistence"
)

type Persistence struct {
	root           string
	workflowRepo   *WorkflowRepository
	executionRepo  *ExecutionRepository
	credentialRepo *CredentialRepository
}

func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		workflowRepo:   NewWorkflowRepository(cleanRoot),
		executionRepo:  NewExecutionRepository(cleanRoot),
		credentialRepo: NewCredentialRepository(cleanRoot),
	}
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) CredentialRepository() persistence.CredentialRepository {
	return fp.credentialRepo
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
