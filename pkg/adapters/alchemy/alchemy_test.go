package alchemy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

func apiKeyCredential() *models.Credential {
	return &models.Credential{
		Provider: "alchemy",
		Type:     models.CredentialTypeAPIKey,
		Data:     map[string]any{"apiKey": "alchemy-key"},
	}
}

func execCtx() *models.ExecutionContext {
	return models.NewExecutionContext("exec-1", "wf-1", "user-1", nil, nil)
}

func TestExecute_WatchAddressRejectsMalformedAddress(t *testing.T) {
	a := NewAdapter("https://app.example.com")

	_, err := a.Execute(context.Background(), OperationWatchAddress, map[string]any{
		"address": "not-an-address",
	}, apiKeyCredential(), execCtx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address format")
}

func TestExecute_WatchAddressRequiresAddress(t *testing.T) {
	a := NewAdapter("https://app.example.com")

	_, err := a.Execute(context.Background(), OperationWatchAddress, map[string]any{},
		apiKeyCredential(), execCtx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestExecute_GetTransactionsRejectsUnknownNetwork(t *testing.T) {
	a := NewAdapter("https://app.example.com")

	_, err := a.Execute(context.Background(), OperationGetTransactions, map[string]any{
		"address": "0x1111111111111111111111111111111111111111",
		"network": "DOGE_MAINNET",
	}, apiKeyCredential(), execCtx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported network")
}

func TestExecute_RequiresCredential(t *testing.T) {
	a := NewAdapter("https://app.example.com")

	_, err := a.Execute(context.Background(), OperationWatchAddress, map[string]any{
		"address": "0x1111111111111111111111111111111111111111",
	}, nil, execCtx())
	require.Error(t, err)
}

func TestExecute_UnknownOperation(t *testing.T) {
	a := NewAdapter("https://app.example.com")

	_, err := a.Execute(context.Background(), "alchemy.transfer", map[string]any{},
		apiKeyCredential(), execCtx())
	require.Error(t, err)

	var dispatchErr *protocol.DispatchError
	assert.ErrorAs(t, err, &dispatchErr)
}
