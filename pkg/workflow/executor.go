// Package workflow implements the execution engine: topological scheduling,
// input resolution, per-node dispatch and the fail-fast orchestration loop.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/events"
	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/otelhelper"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/registry"
)

// Config tunes executor behavior.
type Config struct {
	// FailOnCycle makes a cyclic graph abort the run before any node
	// executes instead of silently skipping the unreachable nodes.
	FailOnCycle bool
}

// CacheInvalidator drops cached workflow content after execution writes.
type CacheInvalidator interface {
	InvalidateWorkflow(ctx context.Context, workflowID string) error
}

// Executor runs whole workflows: it persists the audit trail, publishes
// lifecycle events and drives nodes one at a time in dependency order. A
// node error aborts the run immediately; downstream nodes never execute and
// are absent from the log.
type Executor struct {
	persistence  persistence.Persistence
	nodeExecutor *NodeExecutor
	publisher    eventbus.EventPublisher
	cache        CacheInvalidator
	logger       *slog.Logger
	config       Config
	tracer       trace.Tracer
}

func NewExecutor(p persistence.Persistence, reg *registry.Registry, publisher eventbus.EventPublisher, cache CacheInvalidator, logger *slog.Logger, config Config) *Executor {
	return &Executor{
		persistence:  p,
		nodeExecutor: NewNodeExecutor(reg, logger),
		publisher:    publisher,
		cache:        cache,
		logger:       logger.With("module", "workflow_executor"),
		config:       config,
		tracer:       otel.Tracer("zynthex/workflow"),
	}
}

// Execute runs one workflow against a trigger payload. It always returns the
// persisted execution record, alongside the error that aborted the run if
// the run failed. Failed node executions are not retried.
func (e *Executor) Execute(ctx context.Context, workflow *models.Workflow, triggerInput map[string]any) (*models.WorkflowExecution, error) {
	executionID := uuid.NewString()
	startedAt := time.Now().UTC()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", executionID,
	)

	triggerOutput := models.NormalizeTriggerPayload(triggerInput)

	execution := &models.WorkflowExecution{
		ID:           executionID,
		WorkflowID:   workflow.ID,
		UserID:       workflow.UserID,
		Status:       models.ExecutionStatusRunning,
		StartedAt:    startedAt,
		TriggerInput: triggerOutput,
	}

	if err := e.persistence.ExecutionRepository().Create(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	e.publishEvent(ctx, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: executionID,
	})

	logger.Info("Workflow execution started", "nodes", len(workflow.Content.Nodes))

	credentials, err := e.loadCredentials(ctx, workflow.UserID)
	if err != nil {
		return e.fail(ctx, execution, fmt.Errorf("failed to load credentials: %w", err))
	}

	sorted := TopologicalOrder(workflow.Content.Nodes, workflow.Content.Edges)

	if e.config.FailOnCycle {
		if err := validateOrder(workflow.Content.Nodes, sorted); err != nil {
			return e.fail(ctx, execution, err)
		}
	} else if dropped := droppedNodeIDs(workflow.Content.Nodes, sorted); len(dropped) > 0 {
		logger.Warn("Cycle detected, skipping unreachable nodes", "node_ids", dropped)
	}

	execCtx := models.NewExecutionContext(executionID, workflow.ID, workflow.UserID, triggerOutput, credentials)

	for _, node := range sorted {
		if models.IsTriggerNodeType(node.Type) {
			// Trigger output was supplied externally; record it so
			// downstream edges resolve, but keep it out of the log.
			execCtx.SetNodeOutput(node.ID, triggerOutput, models.NodeExecutionResult{
				Success:     true,
				Output:      triggerOutput,
				TriggeredAt: startedAt,
			})

			continue
		}

		input := ResolveInput(node.ID, workflow.Content.Edges, execCtx)

		output, nodeErr := e.executeNode(ctx, node, input, execCtx)
		if nodeErr != nil {
			execution.ExecutionLog = append(execution.ExecutionLog, models.ExecutionLogEntry{
				NodeID:    node.ID,
				NodeType:  node.Type,
				Status:    models.NodeStatusError,
				Input:     input,
				Error:     nodeErr.Error(),
				Timestamp: time.Now().UTC(),
			})

			return e.fail(ctx, execution, nodeErr)
		}

		execCtx.SetNodeOutput(node.ID, output, models.NodeExecutionResult{
			Success:     true,
			Output:      output,
			TriggeredAt: time.Now().UTC(),
		})

		execution.ExecutionLog = append(execution.ExecutionLog, models.ExecutionLogEntry{
			NodeID:    node.ID,
			NodeType:  node.Type,
			Status:    models.NodeStatusSuccess,
			Input:     input,
			Output:    output,
			Timestamp: time.Now().UTC(),
		})

		e.recordNodeOutput(ctx, workflow.ID, node.ID, output, logger)

		e.publishEvent(ctx, events.NodeOutput{
			BaseEvent:   e.baseEvent(events.NodeOutputEvent, workflow.ID),
			ExecutionID: executionID,
			NodeID:      node.ID,
			Output:      output,
		})
	}

	result := map[string]any{
		"context": execCtx,
		"log":     execution.ExecutionLog,
	}

	// The returned record and the persisted row must agree on terminal
	// status, so an unpersisted completion fails the run.
	if err := e.persistence.ExecutionRepository().MarkCompleted(ctx, executionID, result, execution.ExecutionLog); err != nil {
		return e.fail(ctx, execution, fmt.Errorf("failed to persist completed execution: %w", err))
	}

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt
	execution.Result = result

	e.publishEvent(ctx, events.ExecutionCompleted{
		BaseEvent:   e.baseEvent(events.ExecutionCompletedEvent, workflow.ID),
		ExecutionID: executionID,
		NodesRun:    len(execution.ExecutionLog),
		Duration:    completedAt.Sub(startedAt),
	})

	logger.Info("Workflow execution completed",
		"nodes_run", len(execution.ExecutionLog),
		"duration", completedAt.Sub(startedAt))

	return execution, nil
}

func (e *Executor) executeNode(ctx context.Context, node models.Node, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	output, err := e.nodeExecutor.Execute(ctx, node, input, execCtx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return output, nil
}

// fail transitions the execution to its terminal failed state and reports
// the original error back to the caller.
func (e *Executor) fail(ctx context.Context, execution *models.WorkflowExecution, cause error) (*models.WorkflowExecution, error) {
	e.logger.Error("Workflow execution failed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"error", cause)

	if err := e.persistence.ExecutionRepository().MarkFailed(ctx, execution.ID, cause.Error(), execution.ExecutionLog); err != nil {
		e.logger.Error("Failed to persist failed execution", "error", err)
	}

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &completedAt
	execution.Error = cause.Error()

	e.publishEvent(ctx, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Error:       cause.Error(),
	})

	return execution, cause
}

// loadCredentials fetches the user's credentials keyed by provider. Nodes
// only ever see the credential matching their own provider.
func (e *Executor) loadCredentials(ctx context.Context, userID string) (map[string]*models.Credential, error) {
	list, err := e.persistence.CredentialRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	credentials := make(map[string]*models.Credential, len(list))
	for _, credential := range list {
		credentials[credential.Provider] = credential
	}

	return credentials, nil
}

// recordNodeOutput writes lastOutput back into the stored workflow and drops
// the cache entry. Both are best effort; the run continues either way.
func (e *Executor) recordNodeOutput(ctx context.Context, workflowID, nodeID string, output map[string]any, logger *slog.Logger) {
	if err := e.persistence.WorkflowRepository().UpdateNodeOutput(ctx, workflowID, nodeID, output); err != nil {
		logger.Warn("Failed to record node output on workflow", "node_id", nodeID, "error", err)

		return
	}

	if e.cache != nil {
		if err := e.cache.InvalidateWorkflow(ctx, workflowID); err != nil {
			logger.Warn("Failed to invalidate workflow cache", "error", err)
		}
	}
}

func (e *Executor) publishEvent(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}
