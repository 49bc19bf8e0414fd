package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/registry"
)

type stubHandler struct {
	nodeType string
	execute  func(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error)
}

func (h *stubHandler) Type() string { return h.nodeType }

func (h *stubHandler) CanHandle(nodeType string) bool { return nodeType == h.nodeType }

func (h *stubHandler) Schema() map[string]any { return nil }

func (h *stubHandler) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	return h.execute(ctx, input, execCtx)
}

type stubAdapter struct {
	providerID string
	operations []string
	execute    func(ctx context.Context, operation string, input map[string]any, credential *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error)
}

func (a *stubAdapter) ProviderID() string { return a.providerID }

func (a *stubAdapter) SupportedOperations() []string { return a.operations }

func (a *stubAdapter) Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error) {
	return a.execute(ctx, operation, input, credential, execCtx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNodeExecutor_InterpolatesConfigAgainstScope(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1",
		map[string]any{"amount": 2.5, "from": "wallet-a"}, nil)

	var got map[string]any

	reg := registry.NewRegistry(testLogger())
	reg.RegisterHandler(&stubHandler{
		nodeType: "slack",
		execute: func(_ context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
			got = input

			return map[string]any{"ok": true}, nil
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	n := models.Node{
		ID:   "slack-1",
		Type: "slack",
		Data: map[string]any{
			"message": "Received {{trigger.amount}} SOL from {{trigger.from}}",
			"amount":  "{{trigger.amount}}",
		},
	}

	output, err := executor.Execute(context.Background(), n, map[string]any{"trigger": execCtx.Trigger.Output}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, output)

	assert.Equal(t, "Received 2.5 SOL from wallet-a", got["message"])
	assert.Equal(t, 2.5, got["amount"])
}

func TestNodeExecutor_InputWinsOverConfig(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, nil)
	execCtx.SetNodeOutput("upstream", map[string]any{"text": "fresh"}, models.NodeExecutionResult{Success: true})

	var got map[string]any

	reg := registry.NewRegistry(testLogger())
	reg.RegisterHandler(&stubHandler{
		nodeType: "email",
		execute: func(_ context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
			got = input

			return map[string]any{}, nil
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	n := models.Node{ID: "email-1", Type: "email", Data: map[string]any{"previous": "stale", "subject": "kept"}}
	input := ResolveInput("email-1", []models.Edge{edge("upstream", "email-1")}, execCtx)

	_, err := executor.Execute(context.Background(), n, input, execCtx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"text": "fresh"}, got["previous"])
	assert.Equal(t, "kept", got["subject"])
}

func TestNodeExecutor_UnknownTypePassesInputThrough(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, nil)
	executor := NewNodeExecutor(registry.NewRegistry(testLogger()), testLogger())

	input := map[string]any{"trigger": map[string]any{}, "payload": "keep me"}

	output, err := executor.Execute(context.Background(), models.Node{ID: "x", Type: "mystery"}, input, execCtx)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestNodeExecutor_RoutesAliasedTypesToAdapters(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, nil)

	var gotOperation string

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAdapter(&stubAdapter{
		providerID: "agent",
		operations: []string{"agent.tools"},
		execute: func(_ context.Context, operation string, _ map[string]any, _ *models.Credential, _ *models.ExecutionContext) (map[string]any, error) {
			gotOperation = operation

			return map[string]any{"content": "done"}, nil
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	for _, nodeType := range []string{"aiAgent", "ai-agent"} {
		output, err := executor.Execute(context.Background(), models.Node{ID: "agent-1", Type: nodeType}, map[string]any{}, execCtx)
		require.NoError(t, err)
		assert.Equal(t, "agent.tools", gotOperation)
		assert.Equal(t, map[string]any{"content": "done"}, output)
	}
}

func TestNodeExecutor_DispatchesConfiguredProviderOperation(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1",
		map[string]any{"address": "0xabc"}, nil)

	var gotOperation string

	var gotInput map[string]any

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAdapter(&stubAdapter{
		providerID: "alchemy",
		operations: []string{"alchemy.watchAddress", "alchemy.getTransactions"},
		execute: func(_ context.Context, operation string, input map[string]any, _ *models.Credential, _ *models.ExecutionContext) (map[string]any, error) {
			gotOperation = operation
			gotInput = input

			return map[string]any{"webhookId": "wh-1"}, nil
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	n := models.Node{
		ID:   "watch-1",
		Type: "alchemyWatch",
		Data: map[string]any{
			"provider":  "alchemy",
			"operation": "alchemy.watchAddress",
			"address":   "{{trigger.address}}",
		},
	}

	output, err := executor.Execute(context.Background(), n, map[string]any{"trigger": execCtx.Trigger.Output}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"webhookId": "wh-1"}, output)

	assert.Equal(t, "alchemy.watchAddress", gotOperation)
	assert.Equal(t, "0xabc", gotInput["address"])
}

func TestNodeExecutor_ConfiguredProviderWithoutOperationFallsThrough(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, nil)
	executor := NewNodeExecutor(registry.NewRegistry(testLogger()), testLogger())

	n := models.Node{ID: "x", Type: "mystery", Data: map[string]any{"provider": "alchemy"}}
	input := map[string]any{"payload": "keep me"}

	output, err := executor.Execute(context.Background(), n, input, execCtx)
	require.NoError(t, err)
	assert.Equal(t, "keep me", output["payload"])
}

func TestNodeExecutor_AdapterReceivesProviderCredentialOnly(t *testing.T) {
	credentials := map[string]*models.Credential{
		"agent":  {ID: "c1", Provider: "agent", Data: map[string]any{"apiKey": "agent-key"}},
		"openai": {ID: "c2", Provider: "openai", Data: map[string]any{"apiKey": "openai-key"}},
	}
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, credentials)

	var got *models.Credential

	reg := registry.NewRegistry(testLogger())
	reg.RegisterAdapter(&stubAdapter{
		providerID: "agent",
		execute: func(_ context.Context, _ string, _ map[string]any, credential *models.Credential, _ *models.ExecutionContext) (map[string]any, error) {
			got = credential

			return map[string]any{}, nil
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	_, err := executor.Execute(context.Background(), models.Node{ID: "agent-1", Type: "aiAgent"}, map[string]any{}, execCtx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

func TestNodeExecutor_HandlerErrorWrapsNodeIdentity(t *testing.T) {
	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1", map[string]any{}, nil)

	reg := registry.NewRegistry(testLogger())
	reg.RegisterHandler(&stubHandler{
		nodeType: "http",
		execute: func(_ context.Context, _ map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
			return nil, errors.New("connection refused")
		},
	})

	executor := NewNodeExecutor(reg, testLogger())

	_, err := executor.Execute(context.Background(), models.Node{ID: "http-1", Type: "http"}, map[string]any{}, execCtx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http-1")
	assert.Contains(t, err.Error(), "connection refused")
}
