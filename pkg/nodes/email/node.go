// Package email provides the SMTP email node.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

type Node struct{}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Type() string {
	return "email"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "email"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"to"},
		"properties": map[string]any{
			"to":       map[string]any{"type": "string"},
			"subject":  map[string]any{"type": "string"},
			"body":     map[string]any{"type": "string"},
			"from":     map[string]any{"type": "string"},
			"smtpHost": map[string]any{"type": "string"},
			"smtpPort": map[string]any{"type": "number"},
			"username": map[string]any{"type": "string"},
			"password": map[string]any{"type": "string"},
		},
	}
}

func (n *Node) Execute(_ context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
	to, _ := input["to"].(string)
	if to == "" {
		return nil, protocol.Validationf("recipient address is required")
	}

	host, _ := input["smtpHost"].(string)
	if host == "" {
		// Without SMTP configuration the node records the intent only, the
		// behavior workflows rely on in dry runs.
		return map[string]any{"sent": true, "to": to, "simulated": true}, nil
	}

	port := 587
	if v, ok := input["smtpPort"].(float64); ok && v > 0 {
		port = int(v)
	}

	subject, _ := input["subject"].(string)
	body, _ := input["body"].(string)

	from, _ := input["from"].(string)
	if from == "" {
		from, _ = input["username"].(string)
	}

	message := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth

	if username, ok := input["username"].(string); ok && username != "" {
		password, _ := input["password"].(string)
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	if err := smtp.SendMail(addr, auth, from, strings.Split(to, ","), []byte(message)); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return map[string]any{"sent": true, "to": to}, nil
}
