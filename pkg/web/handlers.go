// Package web provides the HTTP surface of the engine: workflow and
// credential management, the execution audit API and the webhook ingestion
// routes that trigger runs.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/registry"
	"github.com/zynthex/zynthex/pkg/workflow"
)

// webhookExecutionTimeout bounds background runs started by webhook ingestion.
const webhookExecutionTimeout = 5 * time.Minute

// WorkflowCache is the read-through cache the handlers consult before the
// primary store. Optional; a nil cache means every read hits persistence.
type WorkflowCache interface {
	Get(ctx context.Context, workflowID string) (*models.Workflow, error)
	Set(ctx context.Context, workflow *models.Workflow) error
	InvalidateWorkflow(ctx context.Context, workflowID string) error
}

// ScheduleReloader re-syncs cron entries after deploy state changes.
// Optional.
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}

type APIHandlers struct {
	persistence persistence.Persistence
	executor    *workflow.Executor
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	cache       WorkflowCache
	scheduler   ScheduleReloader
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	executor *workflow.Executor,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	cache WorkflowCache,
	scheduler ScheduleReloader,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		executor:    executor,
		registry:    reg,
		publisher:   publisher,
		cache:       cache,
		scheduler:   scheduler,
		validator:   validator,
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return badRequest(c, "user_id query parameter is required")
	}

	workflows, err := h.persistence.WorkflowRepository().List(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.fetchWorkflow(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.validateNodeConfigs(req.Content.Nodes); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.Workflow{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Name:     req.Name,
		Deployed: req.Deployed,
		Content:  req.Content,
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.validateNodeConfigs(req.Content.Nodes); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	existing.Name = req.Name
	existing.Deployed = req.Deployed
	existing.Content = req.Content

	if err := h.persistence.WorkflowRepository().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	h.invalidateCache(c.Context(), id)
	h.reloadSchedules(c.Context())

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.WorkflowRepository().Delete(c.Context(), id); err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	h.invalidateCache(c.Context(), id)
	h.reloadSchedules(c.Context())

	return c.SendStatus(fiber.StatusNoContent)
}

// DeployWorkflow marks a workflow eligible for webhook and schedule triggers.
func (h *APIHandlers) DeployWorkflow(c fiber.Ctx) error {
	return h.setDeployed(c, true)
}

func (h *APIHandlers) UndeployWorkflow(c fiber.Ctx) error {
	return h.setDeployed(c, false)
}

func (h *APIHandlers) setDeployed(c fiber.Ctx, deployed bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	wf.Deployed = deployed

	if err := h.persistence.WorkflowRepository().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	h.invalidateCache(c.Context(), id)
	h.reloadSchedules(c.Context())

	return c.JSON(wf)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err, "Execution not found")
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.persistence.ExecutionRepository().ListByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"count":      len(executions),
	})
}

func (h *APIHandlers) SaveCredential(c fiber.Ctx) error {
	var req SaveCredentialRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	credential := &models.Credential{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Provider: req.Provider,
		Type:     models.CredentialType(req.Type),
		Data:     req.Data,
	}

	if err := h.persistence.CredentialRepository().Save(c.Context(), credential); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toCredentialResponse(credential))
}

func (h *APIHandlers) ListCredentials(c fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return badRequest(c, "user_id query parameter is required")
	}

	credentials, err := h.persistence.CredentialRepository().ListByUser(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	responses := make([]CredentialResponse, 0, len(credentials))
	for _, credential := range credentials {
		responses = append(responses, toCredentialResponse(credential))
	}

	return c.JSON(fiber.Map{
		"credentials": responses,
		"count":       len(responses),
	})
}

func (h *APIHandlers) validateNodeConfigs(nodes []models.Node) error {
	for _, node := range nodes {
		if err := h.registry.ValidateNodeConfig(node.Type, node.Data); err != nil {
			return err
		}
	}

	return nil
}

// fetchWorkflow reads through the cache when one is configured. Cache
// failures fall back to the primary store.
func (h *APIHandlers) fetchWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	if h.cache != nil {
		if wf, err := h.cache.Get(ctx, id); err == nil {
			return wf, nil
		}
	}

	wf, err := h.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, wf); err != nil {
			h.logger.Warn("Failed to cache workflow", "workflow_id", id, "error", err)
		}
	}

	return wf, nil
}

func (h *APIHandlers) invalidateCache(ctx context.Context, workflowID string) {
	if h.cache == nil {
		return
	}

	if err := h.cache.InvalidateWorkflow(ctx, workflowID); err != nil {
		h.logger.Warn("Failed to invalidate workflow cache", "workflow_id", workflowID, "error", err)
	}
}

func (h *APIHandlers) reloadSchedules(ctx context.Context) {
	if h.scheduler == nil {
		return
	}

	if err := h.scheduler.Reload(ctx); err != nil {
		h.logger.Warn("Failed to reload schedules", "error", err)
	}
}
