// Package agent implements the AI agent provider adapter: a chat completion
// round armed with the caller-declared tool definitions.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const (
	OperationTools = "agent.tools"

	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1000
)

type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ProviderID() string {
	return "agent"
}

func (a *Adapter) SupportedOperations() []string {
	return []string{OperationTools}
}

func (a *Adapter) Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, _ *models.ExecutionContext) (map[string]any, error) {
	if operation != OperationTools {
		return nil, &protocol.DispatchError{Provider: a.ProviderID(), Operation: operation}
	}

	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		return nil, protocol.Validationf("prompt is required")
	}

	apiKey := apiKeyFrom(credential)
	if apiKey == "" {
		return nil, protocol.Validationf("agent requires an OpenAI API key")
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(stringOr(input, "model", defaultModel)),
		MaxCompletionTokens: openai.Int(intOr(input, "maxTokens", defaultMaxTokens)),
	}

	if systemPrompt, ok := input["systemPrompt"].(string); ok && systemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(systemPrompt))
	}

	params.Messages = append(params.Messages, openai.UserMessage(prompt))

	if temperature, ok := input["temperature"].(float64); ok {
		params.Temperature = openai.Float(temperature)
	}

	tools, err := convertTools(input["tools"])
	if err != nil {
		return nil, err
	}

	params.Tools = tools

	client := openai.NewClient(option.WithAPIKey(apiKey))

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("agent completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("agent completion returned no choices")
	}

	choice := completion.Choices[0]

	toolCalls := make([]any, 0, len(choice.Message.ToolCalls))

	for _, call := range choice.Message.ToolCalls {
		var arguments map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil {
			arguments = map[string]any{"_raw": call.Function.Arguments}
		}

		toolCalls = append(toolCalls, map[string]any{
			"id":        call.ID,
			"name":      call.Function.Name,
			"arguments": arguments,
		})
	}

	return map[string]any{
		"content":      choice.Message.Content,
		"toolCalls":    toolCalls,
		"model":        completion.Model,
		"finishReason": string(choice.FinishReason),
	}, nil
}

// convertTools maps the node's tool declarations onto the OpenAI tool schema.
func convertTools(raw any) ([]openai.ChatCompletionToolParam, error) {
	declarations, ok := raw.([]any)
	if !ok || len(declarations) == 0 {
		return nil, nil
	}

	tools := make([]openai.ChatCompletionToolParam, 0, len(declarations))

	for _, declaration := range declarations {
		spec, ok := declaration.(map[string]any)
		if !ok {
			return nil, protocol.Validationf("tool declarations must be objects")
		}

		name, _ := spec["name"].(string)
		if name == "" {
			return nil, protocol.Validationf("tool declarations require a name")
		}

		tool := openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name: name,
			},
		}

		if description, ok := spec["description"].(string); ok && description != "" {
			tool.Function.Description = openai.String(description)
		}

		if parameters, ok := spec["parameters"].(map[string]any); ok {
			tool.Function.Parameters = shared.FunctionParameters(parameters)
		}

		tools = append(tools, tool)
	}

	return tools, nil
}

func apiKeyFrom(credential *models.Credential) string {
	if key, err := protocol.RequireAPIKey(credential, "agent"); err == nil {
		return key
	}

	return os.Getenv("OPENAI_API_KEY")
}

func stringOr(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}

	return fallback
}

func intOr(input map[string]any, key string, fallback int64) int64 {
	if v, ok := input[key].(float64); ok && v > 0 {
		return int64(v)
	}

	return fallback
}
