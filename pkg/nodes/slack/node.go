// Package slack provides the Slack incoming-webhook node.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

type Node struct {
	client *http.Client
}

func NewNode() *Node {
	return &Node{client: &http.Client{Timeout: 15 * time.Second}}
}

func (n *Node) Type() string {
	return "slack"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "slack"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"webhookUrl"},
		"properties": map[string]any{
			"webhookUrl": map[string]any{"type": "string"},
			"message":    map[string]any{"type": "string"},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
	webhookURL, _ := input["webhookUrl"].(string)
	if webhookURL == "" {
		return nil, protocol.Validationf("Slack webhook URL not configured")
	}

	message, _ := input["message"].(string)

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return map[string]any{"sent": true}, nil
}
