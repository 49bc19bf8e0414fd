// Package coingate implements the CoinGate provider adapter for crypto
// payment orders.
package coingate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	OperationCreate  = "payment.create"
	OperationWebhook = "payment.webhook"

	ordersURL = "https://api.coingate.com/v2/orders"
)

// Adapter creates CoinGate payment orders. Both operations create an order;
// payment.webhook additionally wires the execution into the callback URL so
// the payment status lands back on this workflow.
type Adapter struct {
	client    *http.Client
	appURL    string
	ordersURL string
}

func NewAdapter(appURL string) *Adapter {
	return &Adapter{
		client:    &http.Client{Timeout: 30 * time.Second},
		appURL:    appURL,
		ordersURL: ordersURL,
	}
}

func (a *Adapter) ProviderID() string {
	return "coingate"
}

func (a *Adapter) SupportedOperations() []string {
	return []string{OperationCreate, OperationWebhook}
}

func (a *Adapter) Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error) {
	apiKey, err := protocol.RequireAPIKey(credential, "CoinGate")
	if err != nil {
		return nil, err
	}

	switch operation {
	case OperationCreate, OperationWebhook:
		return a.createOrder(ctx, input, apiKey, execCtx)
	default:
		return nil, &protocol.DispatchError{Provider: a.ProviderID(), Operation: operation}
	}
}

func (a *Adapter) createOrder(ctx context.Context, input map[string]any, apiKey string, execCtx *models.ExecutionContext) (map[string]any, error) {
	priceAmount, ok := input["priceAmount"].(float64)
	if !ok {
		return nil, protocol.Validationf("price amount is required and must be a number")
	}

	priceCurrency, _ := input["priceCurrency"].(string)
	if priceCurrency == "" {
		return nil, protocol.Validationf("price currency is required")
	}

	receiveCurrency, _ := input["receiveCurrency"].(string)
	if receiveCurrency == "" {
		return nil, protocol.Validationf("receive currency is required")
	}

	callbackURL := fmt.Sprintf("%s/webhooks/coingate?workflowId=%s&executionId=%s",
		a.appURL, url.QueryEscape(execCtx.WorkflowID), url.QueryEscape(execCtx.ExecutionID))

	order := map[string]any{
		"price_amount":     priceAmount,
		"price_currency":   priceCurrency,
		"receive_currency": receiveCurrency,
		"callback_url":     callbackURL,
	}

	if orderID, ok := input["orderId"].(string); ok && orderID != "" {
		order["order_id"] = orderID
	}

	if successURL, ok := input["successUrl"].(string); ok && successURL != "" {
		order["success_url"] = successURL
	}

	if cancelURL, ok := input["cancelUrl"].(string); ok && cancelURL != "" {
		order["cancel_url"] = cancelURL
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.ordersURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingate request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read coingate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("failed to decode coingate response: %w", err)
	}

	return map[string]any{
		"id":              data["id"],
		"orderId":         data["order_id"],
		"status":          data["status"],
		"priceAmount":     data["price_amount"],
		"priceCurrency":   data["price_currency"],
		"receiveAmount":   data["receive_amount"],
		"receiveCurrency": data["receive_currency"],
		"paymentUrl":      data["payment_url"],
		"paymentAddress":  data["payment_address"],
		"token":           data["token"],
		"createdAt":       data["created_at"],
		"expireAt":        data["expire_at"],
	}, nil
}

// NormalizeCallback reshapes a CoinGate callback payload into the camelCase
// form nodes downstream of a payment webhook consume.
func NormalizeCallback(payload map[string]any) map[string]any {
	return map[string]any{
		"id":                payload["id"],
		"orderId":           payload["order_id"],
		"status":            payload["status"],
		"priceAmount":       payload["price_amount"],
		"priceCurrency":     payload["price_currency"],
		"receiveAmount":     payload["receive_amount"],
		"receiveCurrency":   payload["receive_currency"],
		"paymentAddress":    payload["payment_address"],
		"token":             payload["token"],
		"webhookReceivedAt": time.Now().UTC().Format(time.RFC3339),
	}
}
