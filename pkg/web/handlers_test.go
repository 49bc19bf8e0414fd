package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/persistence/file"
	"github.com/zynthex/zynthex/pkg/registry"
	"github.com/zynthex/zynthex/pkg/web"
	"github.com/zynthex/zynthex/pkg/workflow"
)

type notifyHandler struct {
	calls *[]map[string]any
}

func (h notifyHandler) Type() string { return "notify" }

func (h notifyHandler) CanHandle(nodeType string) bool { return nodeType == "notify" }

func (h notifyHandler) Schema() map[string]any { return nil }

func (h notifyHandler) Execute(_ context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
	*h.calls = append(*h.calls, input)

	return map[string]any{"sent": true}, nil
}

type testEnv struct {
	app   *fiber.App
	store persistence.Persistence
	calls []map[string]any
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{}
	env.store = file.NewPersistence(t.TempDir())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.NewRegistry(logger)
	reg.RegisterHandler(notifyHandler{calls: &env.calls})

	executor := workflow.NewExecutor(env.store, reg, nil, nil, logger, workflow.Config{})

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(env.store, executor, reg, nil, nil, nil, validate, logger)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/deploy", handlers.DeployWorkflow)
	w.Post("/:id/undeploy", handlers.UndeployWorkflow)
	w.Post("/:id/test-trigger", handlers.TestTrigger)
	w.Get("/:id/executions", handlers.ListExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Post("/webhooks/helius", handlers.HeliusWebhook)
	app.Post("/webhooks/alchemy", handlers.AlchemyWebhook)
	app.Post("/webhooks/coingate", handlers.CoinGateWebhook)
	app.Post("/credentials", handlers.SaveCredential)
	app.Get("/credentials", handlers.ListCredentials)
	app.Get("/health", handlers.HealthCheck)

	env.app = app

	return env
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func saveNotifyWorkflow(t *testing.T, env *testEnv, deployed bool) *models.Workflow {
	t.Helper()

	wf := &models.Workflow{
		ID:       "wf-1",
		UserID:   "user-1",
		Name:     "Payment notifications",
		Deployed: deployed,
		Content: models.WorkflowDefinition{
			Nodes: []models.Node{
				{ID: "trigger-1", Type: "phantomWatch", Data: map[string]any{
					"address":       "wallet-abc",
					"webhookStatus": "active",
				}},
				{ID: "notify-1", Type: "notify", Data: map[string]any{
					"message": "Received {{trigger.amount}} SOL",
				}},
			},
			Edges: []models.Edge{
				{ID: "e1", Source: "trigger-1", Target: "notify-1"},
			},
		},
	}

	require.NoError(t, env.store.WorkflowRepository().Save(context.Background(), wf))

	return wf
}

func TestCreateWorkflow(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/workflows/", web.SaveWorkflowRequest{
		Name:   "Test Workflow",
		UserID: "user-1",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Test Workflow", created.Name)
	assert.False(t, created.Deployed)
}

func TestCreateWorkflow_ValidationError(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/workflows/", web.SaveWorkflowRequest{
		Name:   "ab",
		UserID: "user-1",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/workflows/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeployTogglesDeployed(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, false)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodPost, "/workflows/wf-1/deploy", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wf, err := env.store.WorkflowRepository().GetByID(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.True(t, wf.Deployed)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodPost, "/workflows/wf-1/undeploy", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wf, err = env.store.WorkflowRepository().GetByID(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.False(t, wf.Deployed)
}

func TestTestTrigger_RunsWorkflow(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, true)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodPost, "/workflows/wf-1/test-trigger", nil), fiber.TestConfig{
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "completed", body["status"])

	executionID, _ := body["execution_id"].(string)
	require.NotEmpty(t, executionID)

	// The simulated transfer is 1 SOL; the notify node sees it interpolated.
	require.Len(t, env.calls, 1)
	assert.Equal(t, "Received 1 SOL", env.calls[0]["message"])

	execution, err := env.store.ExecutionRepository().GetByID(context.Background(), executionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Len(t, execution.ExecutionLog, 1)
	assert.Equal(t, true, execution.TriggerInput["_isTest"])
}

func TestTestTrigger_NoTriggerNode(t *testing.T) {
	env := setupTestApp(t)

	wf := &models.Workflow{
		ID:     "wf-2",
		UserID: "user-1",
		Name:   "No trigger here",
		Content: models.WorkflowDefinition{
			Nodes: []models.Node{{ID: "notify-1", Type: "notify", Data: map[string]any{}}},
		},
	}
	require.NoError(t, env.store.WorkflowRepository().Save(context.Background(), wf))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodPost, "/workflows/wf-2/test-trigger", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHeliusWebhook_HealthCheckEmptyBody(t *testing.T) {
	env := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/helius", bytes.NewReader(nil))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestHeliusWebhook_TriggersMatchingWorkflow(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, true)

	req := jsonRequest(t, http.MethodPost, "/webhooks/helius", []map[string]any{
		{
			"signature": "sig-1",
			"slot":      42,
			"nativeTransfers": []map[string]any{
				{"fromUserAccount": "wallet-abc", "toUserAccount": "wallet-xyz", "amount": 2_000_000_000},
			},
		},
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.EqualValues(t, 1, body["processed"])
	assert.EqualValues(t, 1, body["triggered"])
}

func TestHeliusWebhook_IgnoresUnwatchedAddress(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, true)

	req := jsonRequest(t, http.MethodPost, "/webhooks/helius", []map[string]any{
		{
			"signature": "sig-2",
			"nativeTransfers": []map[string]any{
				{"fromUserAccount": "other-wallet", "toUserAccount": "wallet-xyz", "amount": 1},
			},
		},
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 0, body["triggered"])
}

func TestHeliusWebhook_SkipsUndeployedWorkflows(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, false)

	req := jsonRequest(t, http.MethodPost, "/webhooks/helius", []map[string]any{
		{
			"signature": "sig-3",
			"nativeTransfers": []map[string]any{
				{"fromUserAccount": "wallet-abc", "toUserAccount": "wallet-xyz", "amount": 1},
			},
		},
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 0, body["triggered"])
}

func alchemyPayload(metadata map[string]any) map[string]any {
	payload := map[string]any{
		"webhookId": "wh-1",
		"id":        "evt-1",
		"createdAt": "2026-08-30T12:00:00Z",
		"type":      "ADDRESS_ACTIVITY",
		"event": map[string]any{
			"activity": []map[string]any{
				{
					"fromAddress": "0xsender",
					"toAddress":   "0xreceiver",
					"value":       0.5,
					"asset":       "ETH",
					"category":    "external",
					"hash":        "0xhash",
					"blockNum":    "0x10",
				},
			},
		},
	}

	if metadata != nil {
		payload["metadata"] = metadata
	}

	return payload
}

func TestAlchemyWebhook_TriggersConfiguredWorkflow(t *testing.T) {
	env := setupTestApp(t)
	saveNotifyWorkflow(t, env, true)

	req := jsonRequest(t, http.MethodPost, "/webhooks/alchemy", alchemyPayload(map[string]any{
		"workflowId": "wf-1",
		"nodeId":     "trigger-1",
	}))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "wf-1", body["workflow_id"])

	transaction, ok := body["transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xsender", transaction["from"])
	assert.Equal(t, "0xreceiver", transaction["to"])
	assert.Equal(t, "0xhash", transaction["hash"])

	// The trigger node's lastOutput was written synchronously.
	wf, err := env.store.WorkflowRepository().GetByID(context.Background(), "wf-1")
	require.NoError(t, err)

	lastOutput, ok := wf.Content.Nodes[0].Data["lastOutput"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xsender", lastOutput["from"])
}

func TestAlchemyWebhook_AcknowledgesWithoutWorkflow(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhooks/alchemy", alchemyPayload(nil))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Contains(t, body["message"], "no workflow configured")
}

func TestAlchemyWebhook_RejectsPayloadWithoutActivity(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhooks/alchemy", map[string]any{"webhookId": "wh-1"})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAlchemyWebhook_UnknownWorkflowIsNotFound(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhooks/alchemy", alchemyPayload(map[string]any{
		"workflowId": "missing",
	}))

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCoinGateWebhook_CompletesExecution(t *testing.T) {
	env := setupTestApp(t)

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, env.store.ExecutionRepository().Create(context.Background(), execution))

	req := jsonRequest(t, http.MethodPost, "/webhooks/coingate?workflowId=wf-1&executionId=exec-1", map[string]any{
		"id":             99,
		"order_id":       "order-1",
		"status":         "paid",
		"price_amount":   "10.0",
		"price_currency": "USD",
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := env.store.ExecutionRepository().GetByID(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, updated.Status)
	assert.Equal(t, "paid", updated.Result["status"])
	assert.Equal(t, "order-1", updated.Result["orderId"])
	assert.NotNil(t, updated.Result["webhookData"])
}

func TestCoinGateWebhook_MissingParams(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/webhooks/coingate", map[string]any{"status": "paid"})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCredentials_SaveAndListRedacted(t *testing.T) {
	env := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/credentials", web.SaveCredentialRequest{
		UserID:   "user-1",
		Provider: "coingate",
		Type:     "api_key",
		Data:     map[string]any{"apiKey": "secret-key"},
	})

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/credentials?user_id=user-1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "coingate")
	assert.NotContains(t, string(payload), "secret-key")
}

func TestHealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
