// Package gmail provides the Gmail send node, using the user's OAuth
// credential against the Gmail REST API.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const sendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

type Node struct {
	client *http.Client
}

func NewNode() *Node {
	return &Node{client: &http.Client{Timeout: 30 * time.Second}}
}

func (n *Node) Type() string {
	return "gmail"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "gmail" || nodeType == "gmailSend"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"to"},
		"properties": map[string]any{
			"to":      map[string]any{"type": "string"},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	to, _ := input["to"].(string)
	if to == "" {
		return nil, protocol.Validationf("recipient address is required")
	}

	token, err := protocol.RequireAccessToken(execCtx.CredentialFor("gmail"), "Gmail")
	if err != nil {
		return nil, err
	}

	subject, _ := input["subject"].(string)
	body, _ := input["body"].(string)

	raw := strings.Join([]string{
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gmail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gmail request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var sent map[string]any
	if err := json.Unmarshal(respBody, &sent); err != nil {
		return nil, fmt.Errorf("failed to decode gmail response: %w", err)
	}

	return map[string]any{
		"sent":      true,
		"to":        to,
		"messageId": sent["id"],
		"threadId":  sent["threadId"],
	}, nil
}
