package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_DotPath(t *testing.T) {
	scope := map[string]any{
		"trigger": map[string]any{
			"amount": 5.0,
			"from":   "wallet-a",
		},
	}

	value, ok := Resolve("trigger.amount", scope)
	assert.True(t, ok)
	assert.Equal(t, 5.0, value)

	value, ok = Resolve(" trigger.from ", scope)
	assert.True(t, ok)
	assert.Equal(t, "wallet-a", value)
}

func TestResolve_MissingPath(t *testing.T) {
	scope := map[string]any{"trigger": map[string]any{"amount": 5.0}}

	_, ok := Resolve("trigger.missing", scope)
	assert.False(t, ok)

	_, ok = Resolve("unknown.path", scope)
	assert.False(t, ok)

	// Descending through a non-object fails, not panics.
	_, ok = Resolve("trigger.amount.deeper", scope)
	assert.False(t, ok)
}

func TestInterpolate_EmbeddedToken(t *testing.T) {
	scope := map[string]any{
		"trigger": map[string]any{"amount": 5.0, "name": "Jane"},
	}

	data := map[string]any{
		"prompt": "Hi {{trigger.name}}, you received {{trigger.amount}} SOL",
	}

	result := Interpolate(data, scope)

	assert.Equal(t, "Hi Jane, you received 5 SOL", result["prompt"])
}

func TestInterpolate_UnresolvedTokenLeftIntact(t *testing.T) {
	scope := map[string]any{"trigger": map[string]any{"amount": 5.0}}

	data := map[string]any{
		"message": "value is {{unknown.path}}",
		"whole":   "{{also.unknown}}",
	}

	result := Interpolate(data, scope)

	assert.Equal(t, "value is {{unknown.path}}", result["message"])
	assert.Equal(t, "{{also.unknown}}", result["whole"])
}

func TestInterpolate_SoleTokenPreservesType(t *testing.T) {
	scope := map[string]any{
		"trigger": map[string]any{
			"amount": 2.5,
			"meta":   map[string]any{"slot": 42.0},
		},
	}

	data := map[string]any{
		"amount": "{{trigger.amount}}",
		"meta":   "{{trigger.meta}}",
	}

	result := Interpolate(data, scope)

	assert.Equal(t, 2.5, result["amount"])
	assert.Equal(t, map[string]any{"slot": 42.0}, result["meta"])
}

func TestInterpolate_NestedStructures(t *testing.T) {
	scope := map[string]any{"trigger": map[string]any{"to": "jane@x.com"}}

	data := map[string]any{
		"headers": map[string]any{"X-Recipient": "{{trigger.to}}"},
		"list":    []any{"{{trigger.to}}", "static"},
		"number":  7.0,
	}

	result := Interpolate(data, scope)

	headers := result["headers"].(map[string]any)
	assert.Equal(t, "jane@x.com", headers["X-Recipient"])

	list := result["list"].([]any)
	assert.Equal(t, "jane@x.com", list[0])
	assert.Equal(t, "static", list[1])

	assert.Equal(t, 7.0, result["number"])
}

func TestInterpolate_QuotesAndNewlinesSurvive(t *testing.T) {
	// Values that would corrupt a JSON round trip must substitute cleanly.
	scope := map[string]any{
		"previous": map[string]any{"content": "line one\nshe said \"hi\""},
	}

	data := map[string]any{
		"body": "reply: {{previous.content}}",
	}

	result := Interpolate(data, scope)

	assert.Equal(t, "reply: line one\nshe said \"hi\"", result["body"])
}

func TestInterpolate_DoesNotMutateInput(t *testing.T) {
	scope := map[string]any{"trigger": map[string]any{"amount": 1.0}}
	data := map[string]any{"amount": "{{trigger.amount}}"}

	_ = Interpolate(data, scope)

	assert.Equal(t, "{{trigger.amount}}", data["amount"])
}

func TestInterpolate_NilData(t *testing.T) {
	assert.Nil(t, Interpolate(nil, map[string]any{}))
}
