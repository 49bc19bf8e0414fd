package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_PostsMessageText(t *testing.T) {
	var got map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := NewNode()

	output, err := n.Execute(context.Background(), map[string]any{
		"webhookUrl": server.URL,
		"message":    "You received 1 SOL",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sent": true}, output)
	assert.Equal(t, "You received 1 SOL", got["text"])
}

func TestExecute_MissingWebhookURL(t *testing.T) {
	n := NewNode()

	_, err := n.Execute(context.Background(), map[string]any{"message": "hi"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook URL")
}

func TestExecute_ErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewNode()

	_, err := n.Execute(context.Background(), map[string]any{"webhookUrl": server.URL}, nil)
	require.Error(t, err)
}
