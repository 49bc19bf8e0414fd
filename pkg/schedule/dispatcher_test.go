package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/persistence/file"
	"github.com/zynthex/zynthex/pkg/registry"
	"github.com/zynthex/zynthex/pkg/workflow"
)

func newDispatcher(t *testing.T) (*Dispatcher, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := workflow.NewExecutor(store, registry.NewRegistry(logger), nil, nil, logger, workflow.Config{})

	return NewDispatcher(store, executor, logger), store
}

func scheduledWorkflow(id, cron string, deployed bool) *models.Workflow {
	return &models.Workflow{
		ID:       id,
		UserID:   "user-1",
		Name:     "Scheduled workflow " + id,
		Deployed: deployed,
		Content: models.WorkflowDefinition{
			Nodes: []models.Node{
				{ID: "schedule-1", Type: "schedule", Data: map[string]any{"cron": cron}},
			},
		},
	}
}

func TestReload_RegistersDeployedSchedules(t *testing.T) {
	d, store := newDispatcher(t)

	require.NoError(t, store.WorkflowRepository().Save(context.Background(), scheduledWorkflow("wf-1", "*/5 * * * *", true)))
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), scheduledWorkflow("wf-2", "0 0 * * *", false)))

	require.NoError(t, d.Reload(context.Background()))

	assert.Len(t, d.entries, 1)
	assert.Contains(t, d.entries, "wf-1/schedule-1")
}

func TestReload_SkipsInvalidCronExpressions(t *testing.T) {
	d, store := newDispatcher(t)

	require.NoError(t, store.WorkflowRepository().Save(context.Background(), scheduledWorkflow("wf-1", "not a cron", true)))

	require.NoError(t, d.Reload(context.Background()))

	assert.Empty(t, d.entries)
}

func TestReload_DropsRemovedSchedules(t *testing.T) {
	d, store := newDispatcher(t)

	wf := scheduledWorkflow("wf-1", "*/5 * * * *", true)
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), wf))
	require.NoError(t, d.Reload(context.Background()))
	require.Len(t, d.entries, 1)

	wf.Deployed = false
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), wf))
	require.NoError(t, d.Reload(context.Background()))

	assert.Empty(t, d.entries)
}

func TestReload_IgnoresNodesWithoutCron(t *testing.T) {
	d, store := newDispatcher(t)

	wf := scheduledWorkflow("wf-1", "", true)
	require.NoError(t, store.WorkflowRepository().Save(context.Background(), wf))

	require.NoError(t, d.Reload(context.Background()))

	assert.Empty(t, d.entries)
}
