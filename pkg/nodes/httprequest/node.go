// Package httprequest provides the HTTP request node for workflow execution.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	defaultTimeout  = 30
	defaultAttempts = 1
)

type Node struct{}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Type() string {
	return "http"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "http" || nodeType == "httpRequest"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url":     map[string]any{"type": "string"},
			"method":  map[string]any{"type": "string"},
			"headers": map[string]any{"type": "object"},
			"body":    map[string]any{"type": "string"},
			"timeout": map[string]any{"type": "number", "minimum": 1, "maximum": 300},
			"retries": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "number", "minimum": 1, "maximum": 10},
					"delay":    map[string]any{"type": "number", "minimum": 0, "maximum": 30000},
				},
			},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
	url, _ := input["url"].(string)
	if url == "" {
		return nil, protocol.Validationf("url is required")
	}

	method := http.MethodGet
	if v, ok := input["method"].(string); ok && v != "" {
		method = strings.ToUpper(v)
	}

	body, _ := input["body"].(string)

	timeout := defaultTimeout
	if v, ok := input["timeout"].(float64); ok && v > 0 {
		timeout = int(v)
	}

	attempts := defaultAttempts
	delay := 0

	if retries, ok := input["retries"].(map[string]any); ok {
		if v, ok := retries["attempts"].(float64); ok && v >= 1 {
			attempts = int(v)
		}

		if v, ok := retries["delay"].(float64); ok && v >= 0 {
			delay = int(v)
		}
	}

	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(delay) * time.Millisecond):
			}
		}

		result, err := n.perform(ctx, client, method, url, body, input)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Client errors are not transient; only retry network and 5xx failures.
		var httpErr *protocol.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			break
		}
	}

	return nil, fmt.Errorf("HTTP request failed after %d attempts: %w", attempts, lastErr)
}

func (n *Node) perform(ctx context.Context, client *http.Client, method, url, body string, input map[string]any) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if headers, ok := input["headers"].(map[string]any); ok {
		for key, value := range headers {
			if v, ok := value.(string); ok {
				req.Header.Set(key, v)
			}
		}
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &protocol.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeaders(resp.Header),
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}

func flattenHeaders(header http.Header) map[string]any {
	flat := make(map[string]any, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}

	return flat
}
