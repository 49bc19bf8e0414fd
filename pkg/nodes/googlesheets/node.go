// Package googlesheets provides the Google Sheets append node.
package googlesheets

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

const defaultRange = "Sheet1!A1"

type Node struct {
	client *http.Client
}

func NewNode() *Node {
	return &Node{client: &http.Client{Timeout: 30 * time.Second}}
}

func (n *Node) Type() string {
	return "googleSheets"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "googleSheets"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"spreadsheetId", "values"},
		"properties": map[string]any{
			"spreadsheetId": map[string]any{"type": "string"},
			"range":         map[string]any{"type": "string"},
			"values":        map[string]any{"type": "array"},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	spreadsheetID, _ := input["spreadsheetId"].(string)
	if spreadsheetID == "" {
		return nil, protocol.Validationf("spreadsheetId is required")
	}

	values, ok := input["values"].([]any)
	if !ok || len(values) == 0 {
		return nil, protocol.Validationf("values are required")
	}

	// A flat list is treated as a single row.
	if _, nested := values[0].([]any); !nested {
		values = []any{values}
	}

	token, err := protocol.RequireAccessToken(execCtx.CredentialFor("googleSheets"), "Google Sheets")
	if err != nil {
		return nil, err
	}

	sheetRange := defaultRange
	if v, ok := input["range"].(string); ok && v != "" {
		sheetRange = v
	}

	appendURL := fmt.Sprintf(
		"https://sheets.googleapis.com/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		url.PathEscape(spreadsheetID), url.PathEscape(sheetRange))

	payload, err := json.Marshal(map[string]any{"values": values})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sheet values: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, appendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build sheets request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode sheets response: %w", err)
	}

	appended := map[string]any{
		"appended":      true,
		"spreadsheetId": spreadsheetID,
		"range":         sheetRange,
	}

	if updates, ok := result["updates"].(map[string]any); ok {
		appended["updatedRange"] = updates["updatedRange"]
		appended["updatedRows"] = updates["updatedRows"]
	}

	return appended, nil
}
