// Package schedule runs cron-triggered workflows: deployed workflows with a
// schedule node get an entry in a shared cron runner.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/workflow"
)

type Dispatcher struct {
	cron        *cron.Cron
	persistence persistence.Persistence
	executor    *workflow.Executor
	logger      *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewDispatcher(p persistence.Persistence, executor *workflow.Executor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cron:        cron.New(),
		persistence: p,
		executor:    executor,
		logger:      logger.With("module", "schedule_dispatcher"),
		entries:     make(map[string]cron.EntryID),
	}
}

// Start loads schedules from deployed workflows and begins dispatching.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.Reload(ctx); err != nil {
		return err
	}

	d.cron.Start()

	return nil
}

// Reload re-syncs cron entries against the current set of deployed
// workflows. Safe to call while running.
func (d *Dispatcher) Reload(ctx context.Context) error {
	workflows, err := d.persistence.WorkflowRepository().ListDeployed(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, entryID := range d.entries {
		d.cron.Remove(entryID)
		delete(d.entries, key)
	}

	for _, wf := range workflows {
		for _, node := range wf.Content.Nodes {
			if node.Type != "schedule" {
				continue
			}

			expression, _ := node.Data["cron"].(string)
			if expression == "" {
				continue
			}

			d.register(wf, node, expression)
		}
	}

	return nil
}

func (d *Dispatcher) register(wf *models.Workflow, node models.Node, expression string) {
	workflowID := wf.ID
	nodeID := node.ID

	entryID, err := d.cron.AddFunc(expression, func() {
		trigger := map[string]any{
			"scheduledAt": time.Now().UTC().Format(time.RFC3339),
			"cron":        expression,
			"nodeId":      nodeID,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		// The run is re-read at fire time so edits after Reload still apply.
		current, err := d.persistence.WorkflowRepository().GetByID(ctx, workflowID)
		if err != nil {
			d.logger.Error("Failed to load scheduled workflow", "workflow_id", workflowID, "error", err)

			return
		}

		if !current.Deployed {
			return
		}

		if _, err := d.executor.Execute(ctx, current, trigger); err != nil {
			d.logger.Error("Scheduled execution failed", "workflow_id", workflowID, "error", err)
		}
	})
	if err != nil {
		d.logger.Error("Invalid cron expression, skipping schedule",
			"workflow_id", workflowID, "node_id", nodeID, "cron", expression, "error", err)

		return
	}

	d.entries[workflowID+"/"+nodeID] = entryID

	d.logger.Info("Registered schedule", "workflow_id", workflowID, "node_id", nodeID, "cron", expression)
}

// Stop halts dispatching and waits for in-flight runs started by cron.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
}
