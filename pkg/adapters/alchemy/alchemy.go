// Package alchemy implements the Alchemy provider adapter for EVM address
// monitoring and transfer history.
package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	OperationWatchAddress    = "alchemy.watchAddress"
	OperationGetTransactions = "alchemy.getTransactions"

	webhookAPIURL  = "https://dashboard.alchemy.com/api/create-webhook"
	defaultNetwork = "ETH_MAINNET"
	defaultLimit   = 10
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

var networkURLs = map[string]string{
	"ETH_MAINNET":      "https://eth-mainnet.g.alchemy.com/v2/",
	"ETH_SEPOLIA":      "https://eth-sepolia.g.alchemy.com/v2/",
	"POLYGON_MAINNET":  "https://polygon-mainnet.g.alchemy.com/v2/",
	"POLYGON_MUMBAI":   "https://polygon-mumbai.g.alchemy.com/v2/",
	"ARBITRUM_MAINNET": "https://arb-mainnet.g.alchemy.com/v2/",
	"OPTIMISM_MAINNET": "https://opt-mainnet.g.alchemy.com/v2/",
}

// Adapter talks to Alchemy's Notify and JSON-RPC APIs.
type Adapter struct {
	client *http.Client
	appURL string
}

// NewAdapter builds the adapter. appURL is the public base URL webhook
// callbacks are delivered to.
func NewAdapter(appURL string) *Adapter {
	return &Adapter{
		client: &http.Client{Timeout: 30 * time.Second},
		appURL: appURL,
	}
}

func (a *Adapter) ProviderID() string {
	return "alchemy"
}

func (a *Adapter) SupportedOperations() []string {
	return []string{OperationWatchAddress, OperationGetTransactions}
}

func (a *Adapter) Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error) {
	apiKey, err := protocol.RequireAPIKey(credential, "Alchemy")
	if err != nil {
		return nil, err
	}

	switch operation {
	case OperationWatchAddress:
		return a.watchAddress(ctx, input, apiKey, execCtx)
	case OperationGetTransactions:
		return a.getTransactions(ctx, input, apiKey)
	default:
		return nil, &protocol.DispatchError{Provider: a.ProviderID(), Operation: operation}
	}
}

// watchAddress registers an ADDRESS_ACTIVITY webhook via the Notify API.
func (a *Adapter) watchAddress(ctx context.Context, input map[string]any, apiKey string, execCtx *models.ExecutionContext) (map[string]any, error) {
	address, _ := input["address"].(string)
	if address == "" {
		return nil, protocol.Validationf("address is required")
	}

	if !addressPattern.MatchString(address) {
		return nil, protocol.Validationf("invalid Ethereum address format")
	}

	network := stringOr(input, "network", defaultNetwork)

	payload := map[string]any{
		"network":      network,
		"webhook_type": "ADDRESS_ACTIVITY",
		"webhook_url":  a.appURL + "/webhooks/alchemy",
		"addresses":    []string{address},
		"metadata": map[string]any{
			"userId":     execCtx.UserID,
			"workflowId": execCtx.WorkflowID,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alchemy-Token", apiKey)

	data, err := a.do(req)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"webhookId": data["id"],
		"address":   address,
		"network":   network,
		"status":    "active",
		"message":   fmt.Sprintf("Now watching %s on %s", address, network),
	}, nil
}

// getTransactions fetches recent asset transfers via JSON-RPC.
func (a *Adapter) getTransactions(ctx context.Context, input map[string]any, apiKey string) (map[string]any, error) {
	address, _ := input["address"].(string)
	if address == "" {
		return nil, protocol.Validationf("address is required")
	}

	network := stringOr(input, "network", defaultNetwork)

	base, ok := networkURLs[network]
	if !ok {
		return nil, protocol.Validationf("unsupported network: %s", network)
	}

	limit := defaultLimit
	if v, ok := input["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "alchemy_getAssetTransfers",
		"params": []any{map[string]any{
			"fromBlock": "0x0",
			"toBlock":   "latest",
			"toAddress": address,
			"category":  []string{"external", "internal", "erc20", "erc721", "erc1155"},
			"maxCount":  limit,
			"order":     "desc",
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build RPC request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	data, err := a.do(req)
	if err != nil {
		return nil, err
	}

	if rpcErr, ok := data["error"].(map[string]any); ok {
		return nil, fmt.Errorf("alchemy RPC error: %v", rpcErr["message"])
	}

	transfers := []any{}
	if result, ok := data["result"].(map[string]any); ok {
		if t, ok := result["transfers"].([]any); ok {
			transfers = t
		}
	}

	return map[string]any{
		"address":      address,
		"network":      network,
		"transactions": transfers,
		"count":        len(transfers),
	}, nil
}

func (a *Adapter) do(req *http.Request) (map[string]any, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alchemy request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read alchemy response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode alchemy response: %w", err)
	}

	return data, nil
}

func stringOr(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}

	return fallback
}
