// Package openai provides the OpenAI chat completion node.
package openai

import (
	"context"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

type Node struct{}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Type() string {
	return "openai"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "openai"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"prompt"},
		"properties": map[string]any{
			"prompt":       map[string]any{"type": "string"},
			"systemPrompt": map[string]any{"type": "string"},
			"model":        map[string]any{"type": "string"},
			"maxTokens":    map[string]any{"type": "number", "minimum": 1},
			"temperature":  map[string]any{"type": "number", "minimum": 0, "maximum": 2},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		return nil, protocol.Validationf("prompt is required")
	}

	apiKey := resolveAPIKey(execCtx)
	if apiKey == "" {
		return nil, protocol.Validationf("openai requires an API key credential or OPENAI_API_KEY")
	}

	model := defaultModel
	if v, ok := input["model"].(string); ok && v != "" {
		model = v
	}

	maxTokens := int64(defaultMaxTokens)
	if v, ok := input["maxTokens"].(float64); ok && v > 0 {
		maxTokens = int64(v)
	}

	temperature := defaultTemperature
	if v, ok := input["temperature"].(float64); ok {
		temperature = v
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		MaxCompletionTokens: openai.Int(maxTokens),
		Temperature:         openai.Float(temperature),
	}

	if systemPrompt, ok := input["systemPrompt"].(string); ok && systemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(systemPrompt))
	}

	params.Messages = append(params.Messages, openai.UserMessage(prompt))

	client := openai.NewClient(option.WithAPIKey(apiKey))

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, protocol.Validationf("openai returned no choices")
	}

	return map[string]any{
		"content": completion.Choices[0].Message.Content,
		"model":   completion.Model,
		"usage": map[string]any{
			"promptTokens":     completion.Usage.PromptTokens,
			"completionTokens": completion.Usage.CompletionTokens,
			"totalTokens":      completion.Usage.TotalTokens,
		},
	}, nil
}

func resolveAPIKey(execCtx *models.ExecutionContext) string {
	if credential := execCtx.CredentialFor("openai"); credential != nil {
		if key := credential.APIKey(); key != "" {
			return key
		}
	}

	return os.Getenv("OPENAI_API_KEY")
}
