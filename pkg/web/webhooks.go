package web

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/zynthex/zynthex/pkg/adapters/coingate"
	"github.com/zynthex/zynthex/pkg/events"
	"github.com/zynthex/zynthex/pkg/models"
)

// watchNodeTypes are the blockchain watch node types a Helius transaction
// can match against.
var watchNodeTypes = map[string]bool{
	"phantomWatch":  true,
	"metamaskWatch": true,
}

// HeliusWebhook ingests Solana transaction events and triggers every
// deployed workflow watching an involved address. Helius health checks send
// empty bodies and must get a 200 back.
func (h *APIHandlers) HeliusWebhook(c fiber.Ctx) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return c.JSON(fiber.Map{"status": "ok", "message": "Webhook receiver is healthy"})
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return c.JSON(fiber.Map{"status": "ok", "message": "Received non-JSON request"})
	}

	transactions := transactionList(raw)
	if len(transactions) == 0 {
		return c.JSON(fiber.Map{"status": "ok", "message": "No transactions to process"})
	}

	triggered, err := h.triggerMatchingWorkflows(c.Context(), transactions)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"received":  true,
		"processed": len(transactions),
		"triggered": triggered,
	})
}

// transactionList accepts both the single-object and the batched array
// webhook formats.
func transactionList(raw any) []map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		transactions := make([]map[string]any, 0, len(v))

		for _, item := range v {
			if tx, ok := item.(map[string]any); ok {
				transactions = append(transactions, tx)
			}
		}

		return transactions
	default:
		return nil
	}
}

// involvedAddresses collects every address touched by the transactions, from
// raw account keys and enhanced native transfers alike.
func involvedAddresses(transactions []map[string]any) map[string]bool {
	addresses := make(map[string]bool)

	for _, tx := range transactions {
		if inner, ok := tx["transaction"].(map[string]any); ok {
			if message, ok := inner["message"].(map[string]any); ok {
				if keys, ok := message["accountKeys"].([]any); ok {
					for _, key := range keys {
						if addr, ok := key.(string); ok {
							addresses[addr] = true
						}
					}
				}
			}
		}

		transfers, _ := tx["nativeTransfers"].([]any)
		for _, item := range transfers {
			transfer, ok := item.(map[string]any)
			if !ok {
				continue
			}

			if from, ok := transfer["fromUserAccount"].(string); ok {
				addresses[from] = true
			}

			if to, ok := transfer["toUserAccount"].(string); ok {
				addresses[to] = true
			}
		}
	}

	return addresses
}

func (h *APIHandlers) triggerMatchingWorkflows(ctx context.Context, transactions []map[string]any) (int, error) {
	addresses := involvedAddresses(transactions)

	deployed, err := h.persistence.WorkflowRepository().ListDeployed(ctx)
	if err != nil {
		return 0, err
	}

	rawTransactions := make([]any, len(transactions))
	for i, tx := range transactions {
		rawTransactions[i] = tx
	}

	triggered := 0

	for _, wf := range deployed {
		for _, node := range wf.Content.Nodes {
			if !watchNodeTypes[node.Type] {
				continue
			}

			watchedAddress, _ := node.Data["address"].(string)
			if watchedAddress == "" || !addresses[watchedAddress] {
				continue
			}

			if status, _ := node.Data["webhookStatus"].(string); status != "active" {
				continue
			}

			triggerOutput := map[string]any{
				"transactions":   rawTransactions,
				"matchedAddress": watchedAddress,
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			}

			h.logger.Info("Webhook matched watch node",
				"workflow_id", wf.ID, "node_id", node.ID, "address", watchedAddress)

			h.recordTriggerOutput(ctx, wf.ID, node.ID, triggerOutput)

			h.publishWebhookReceived(ctx, wf.ID, node.ID, transactions[0])

			h.executeInBackground(wf, triggerOutput)

			triggered++
		}
	}

	return triggered, nil
}

// recordTriggerOutput writes the flattened trigger payload back onto the
// watch node so the editor shows the last matched transaction. Best effort.
func (h *APIHandlers) recordTriggerOutput(ctx context.Context, workflowID, nodeID string, triggerOutput map[string]any) {
	flattened := models.NormalizeTriggerPayload(triggerOutput)

	if err := h.persistence.WorkflowRepository().UpdateNodeOutput(ctx, workflowID, nodeID, flattened); err != nil {
		h.logger.Warn("Failed to record trigger output", "workflow_id", workflowID, "node_id", nodeID, "error", err)

		return
	}

	h.invalidateCache(ctx, workflowID)
}

func (h *APIHandlers) publishWebhookReceived(ctx context.Context, workflowID, nodeID string, transaction map[string]any) {
	if h.publisher == nil {
		return
	}

	event := events.WebhookReceived{
		BaseEvent: events.BaseEvent{
			ID:         uuid.NewString(),
			Type:       events.WebhookReceivedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: workflowID,
		},
		NodeID:      nodeID,
		Transaction: transaction,
	}

	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish webhook event", "workflow_id", workflowID, "error", err)
	}
}

// executeInBackground runs the workflow detached from the request so the
// webhook caller gets an immediate acknowledgement.
func (h *APIHandlers) executeInBackground(wf *models.Workflow, triggerOutput map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookExecutionTimeout)
		defer cancel()

		if _, err := h.executor.Execute(ctx, wf, triggerOutput); err != nil {
			h.logger.Error("Webhook-triggered execution failed", "workflow_id", wf.ID, "error", err)
		}
	}()
}

// AlchemyWebhook ingests EVM address-activity events from Alchemy Notify.
// Watch registrations carry the workflow and node ids in the webhook
// metadata; deliveries without a workflow id are acknowledged with the
// parsed transaction so dashboard test events succeed.
func (h *APIHandlers) AlchemyWebhook(c fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	event, _ := payload["event"].(map[string]any)

	activity, _ := event["activity"].([]any)
	if len(activity) == 0 {
		return badRequest(c, "Invalid webhook payload")
	}

	// Batched deliveries flatten to the first transaction, like the watch
	// trigger output downstream nodes interpolate against.
	first, _ := activity[0].(map[string]any)
	triggerOutput := alchemyTriggerOutput(payload, first)

	metadata, _ := payload["metadata"].(map[string]any)

	workflowID, _ := metadata["workflowId"].(string)
	if workflowID == "" {
		return c.JSON(fiber.Map{
			"received":    true,
			"message":     "Webhook received (no workflow configured)",
			"transaction": triggerOutput,
		})
	}

	wf, err := h.fetchWorkflow(c.Context(), workflowID)
	if err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	nodeID, _ := metadata["nodeId"].(string)
	if nodeID != "" {
		h.recordTriggerOutput(c.Context(), wf.ID, nodeID, triggerOutput)
	}

	h.publishWebhookReceived(c.Context(), wf.ID, nodeID, triggerOutput)

	h.executeInBackground(wf, triggerOutput)

	return c.JSON(fiber.Map{
		"received":    true,
		"workflow_id": wf.ID,
		"transaction": triggerOutput,
	})
}

// alchemyTriggerOutput flattens an address-activity entry into the trigger
// fields downstream nodes reference.
func alchemyTriggerOutput(payload, activity map[string]any) map[string]any {
	value := activity["value"]
	if value == nil {
		value = "0"
	}

	asset, _ := activity["asset"].(string)
	if asset == "" {
		asset = "ETH"
	}

	return map[string]any{
		"from":        activity["fromAddress"],
		"to":          activity["toAddress"],
		"value":       value,
		"asset":       asset,
		"category":    activity["category"],
		"hash":        activity["hash"],
		"blockNumber": activity["blockNum"],
		"timestamp":   payload["createdAt"],
		"webhookId":   payload["webhookId"],
		"eventId":     payload["id"],
	}
}

// CoinGateWebhook receives payment status callbacks. The callback URL built
// by the payment adapter carries the workflow and execution ids as query
// parameters.
func (h *APIHandlers) CoinGateWebhook(c fiber.Ctx) error {
	workflowID := c.Query("workflowId")
	executionID := c.Query("executionId")

	if workflowID == "" || executionID == "" {
		return badRequest(c, "Missing workflowId or executionId")
	}

	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), executionID)
	if err != nil {
		return handleRepositoryError(c, err, "Execution not found")
	}

	result := coingate.NormalizeCallback(payload)
	result["webhookData"] = payload

	if err := h.persistence.ExecutionRepository().MarkCompleted(c.Context(), executionID, result, execution.ExecutionLog); err != nil {
		return internalError(c, err)
	}

	status, _ := payload["status"].(string)
	h.logger.Info("Payment callback processed",
		"workflow_id", workflowID, "execution_id", executionID, "status", status)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Webhook processed successfully",
	})
}

// TestTrigger simulates a 1 SOL native transfer against the workflow's
// trigger node and runs the workflow synchronously, so developers can test
// without a real on-chain transaction.
func (h *APIHandlers) TestTrigger(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.fetchWorkflow(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err, "Workflow not found")
	}

	triggerNode, ok := findTriggerNode(wf.Content.Nodes)
	if !ok {
		return badRequest(c, "No trigger node found. Add a watch node first.")
	}

	triggerOutput := simulatedTriggerOutput(triggerNode)

	h.recordTriggerOutput(c.Context(), wf.ID, triggerNode.ID, triggerOutput)

	execution, runErr := h.executor.Execute(c.Context(), wf, triggerOutput)
	if execution == nil {
		return internalError(c, runErr)
	}

	return c.JSON(fiber.Map{
		"success":      runErr == nil,
		"execution_id": execution.ID,
		"status":       execution.Status,
	})
}

func findTriggerNode(nodes []models.Node) (models.Node, bool) {
	for _, node := range nodes {
		if watchNodeTypes[node.Type] || node.Type == "trigger" {
			return node, true
		}
	}

	return models.Node{}, false
}

// simulatedTriggerOutput builds a synthetic 1 SOL transfer payload in the
// same shape as a real Helius webhook, marked so downstream consumers can
// tell it apart.
func simulatedTriggerOutput(triggerNode models.Node) map[string]any {
	address, _ := triggerNode.Data["address"].(string)
	if address == "" {
		address = "TestSenderAddress11111111111111111111111"
	}

	simulatedTx := map[string]any{
		"signature": "test_" + uuid.NewString(),
		"slot":      123456789,
		"blockTime": time.Now().Unix(),
		"nativeTransfers": []any{
			map[string]any{
				"fromUserAccount": address,
				"toUserAccount":   "TestReceiverAddress22222222222222222222222",
				"amount":          1_000_000_000,
			},
		},
		"feePayer": address,
	}

	return map[string]any{
		"transactions":   []any{simulatedTx},
		"matchedAddress": address,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"_isTest":        true,
	}
}
