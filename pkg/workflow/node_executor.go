package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zynthex/zynthex/pkg/interpolate"
	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/registry"
)

// adapterRoute maps a node type onto a provider adapter operation.
type adapterRoute struct {
	providerID string
	operation  string
}

// Node types executed through the provider adapter registry rather than a
// built-in handler.
var adapterRoutes = map[string]adapterRoute{
	"aiAgent":            {providerID: "agent", operation: "agent.tools"},
	"ai-agent":           {providerID: "agent", operation: "agent.tools"},
	"webhookResponse":    {providerID: "webhook", operation: "respond"},
	"respondToWebhook":   {providerID: "webhook", operation: "respond"},
	"respond-to-webhook": {providerID: "webhook", operation: "respond"},
	"respond":            {providerID: "webhook", operation: "respond"},
}

// NodeExecutor runs a single node: it interpolates the node's configuration
// against the execution context, merges it with the resolved input (input
// wins on key collision), and dispatches to a provider adapter or a built-in
// handler. Adapters are reached by node type for the aliased types above, or
// by an explicit provider/operation pair in the node configuration, which is
// how watch and payment nodes address alchemy and coingate.
type NodeExecutor struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewNodeExecutor(reg *registry.Registry, logger *slog.Logger) *NodeExecutor {
	return &NodeExecutor{
		registry: reg,
		logger:   logger,
	}
}

func (e *NodeExecutor) Execute(ctx context.Context, node models.Node, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	scope := buildScope(execCtx, input)
	interpolated := interpolate.Interpolate(node.Data, scope)

	// Resolved upstream input takes precedence over the node's own static
	// configuration on key collision.
	merged := make(map[string]any, len(interpolated)+len(input))
	for k, v := range interpolated {
		merged[k] = v
	}

	for k, v := range input {
		merged[k] = v
	}

	if route, ok := adapterRoutes[node.Type]; ok {
		return e.executeAdapter(ctx, route, merged, execCtx)
	}

	if route, ok := configuredRoute(merged); ok {
		return e.executeAdapter(ctx, route, merged, execCtx)
	}

	if handler, ok := e.registry.HandlerFor(node.Type); ok {
		output, err := handler.Execute(ctx, merged, execCtx)
		if err != nil {
			return nil, fmt.Errorf("node %s (%s) failed: %w", node.ID, node.Type, err)
		}

		return output, nil
	}

	// Unrecognized types pass their input through unchanged so partially
	// unsupported workflows stay runnable.
	e.logger.Warn("Unknown node type, passing input through",
		"node_id", node.ID, "node_type", node.Type)

	return input, nil
}

// configuredRoute reads an explicit provider/operation pair from the node's
// interpolated configuration.
func configuredRoute(config map[string]any) (adapterRoute, bool) {
	provider, _ := config["provider"].(string)
	operation, _ := config["operation"].(string)

	if provider == "" || operation == "" {
		return adapterRoute{}, false
	}

	return adapterRoute{providerID: provider, operation: operation}, true
}

func (e *NodeExecutor) executeAdapter(ctx context.Context, route adapterRoute, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	adapter, err := e.registry.AdapterFor(route.providerID)
	if err != nil {
		return nil, err
	}

	credential := execCtx.CredentialFor(route.providerID)

	output, err := adapter.Execute(ctx, route.operation, input, credential, execCtx)
	if err != nil {
		return nil, fmt.Errorf("%s operation %s failed: %w", route.providerID, route.operation, err)
	}

	return output, nil
}
