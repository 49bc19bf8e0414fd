// Package telegram provides the Telegram bot message node.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
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
	return "telegram"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "telegram"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"chatId"},
		"properties": map[string]any{
			"botToken": map[string]any{"type": "string"},
			"chatId":   map[string]any{},
			"message":  map[string]any{"type": "string"},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
	botToken, _ := input["botToken"].(string)
	if botToken == "" {
		botToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	chatID := input["chatId"]

	if botToken == "" || chatID == nil || chatID == "" {
		return nil, protocol.Validationf("Telegram bot token or chat ID not configured")
	}

	message, _ := input["message"].(string)

	payload, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	sendURL := "https://api.telegram.org/bot" + botToken + "/sendMessage"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode telegram response: %w", err)
	}

	return result, nil
}
