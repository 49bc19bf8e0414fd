package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under
// <root>/workflows/<id>.json.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	filePath := filepath.Clean(path.Join(wr.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	all, err := wr.all(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.UserID == userID {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (wr *WorkflowRepository) ListDeployed(ctx context.Context) ([]*models.Workflow, error) {
	all, err := wr.all(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.Deployed {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(wr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	return os.WriteFile(path.Join(wr.dir(), workflow.ID+".json"), data, 0600)
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(wr.dir(), id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// UpdateNodeOutput stores lastOutput/lastExecutedAt into the matching node's
// data inside the workflow document.
func (wr *WorkflowRepository) UpdateNodeOutput(ctx context.Context, workflowID, nodeID string, output map[string]any) error {
	workflow, err := wr.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	for i, node := range workflow.Content.Nodes {
		if node.ID != nodeID {
			continue
		}

		if node.Data == nil {
			node.Data = make(map[string]any)
		}

		node.Data["lastOutput"] = output
		node.Data["lastExecutedAt"] = time.Now().UTC().Format(time.RFC3339)
		workflow.Content.Nodes[i] = node

		return wr.Save(ctx, workflow)
	}

	return fmt.Errorf("node %s not found in workflow %s", nodeID, workflowID)
}

func (wr *WorkflowRepository) all(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(wr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := wr.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
