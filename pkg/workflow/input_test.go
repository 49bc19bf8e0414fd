package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
)

func newContextWithOutputs(t *testing.T, outputs map[string]map[string]any) *models.ExecutionContext {
	t.Helper()

	execCtx := models.NewExecutionContext("exec-1", "wf-1", "user-1",
		map[string]any{"amount": 1.5, "from": "sender"}, nil)

	for id, output := range outputs {
		execCtx.SetNodeOutput(id, output, models.NodeExecutionResult{Success: true, Output: output})
	}

	return execCtx
}

func TestResolveInput_TriggerAndNodesAlwaysPresent(t *testing.T) {
	execCtx := newContextWithOutputs(t, nil)

	input := ResolveInput("target", nil, execCtx)

	assert.Equal(t, map[string]any{"amount": 1.5, "from": "sender"}, input["trigger"])
	assert.NotNil(t, input["nodes"])
	assert.NotContains(t, input, "previous")
}

func TestResolveInput_GenericEdgePopulatesPrevious(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"openai-1": {"content": "hello"},
	})
	edges := []models.Edge{edge("openai-1", "target")}

	input := ResolveInput("target", edges, execCtx)

	assert.Equal(t, map[string]any{"content": "hello"}, input["previous"])
	assert.Equal(t, map[string]any{"content": "hello"}, input["openai-1"])
}

func TestResolveInput_MultipleGenericEdgesBecomeArray(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"a": {"v": 1},
		"b": {"v": 2},
	})
	edges := []models.Edge{edge("a", "target"), edge("b", "target")}

	input := ResolveInput("target", edges, execCtx)

	previous, ok := input["previous"].([]any)
	require.True(t, ok)
	assert.Len(t, previous, 2)
	assert.Equal(t, map[string]any{"v": 1}, input["a"])
	assert.Equal(t, map[string]any{"v": 2}, input["b"])
}

func TestResolveInput_TargetHandleBindsNamedSlot(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"openai-1": {"content": "summary"},
	})
	edges := []models.Edge{
		{ID: "e1", Source: "openai-1", Target: "target", TargetHandle: "body"},
	}

	input := ResolveInput("target", edges, execCtx)

	assert.Equal(t, map[string]any{"content": "summary"}, input["body"])
	assert.NotContains(t, input, "previous")
	assert.NotContains(t, input, "openai-1")
}

func TestResolveInput_SharedHandleCollectsArrayInEdgeOrder(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"a": {"v": "first"},
		"b": {"v": "second"},
	})
	edges := []models.Edge{
		{ID: "e1", Source: "a", Target: "target", TargetHandle: "items"},
		{ID: "e2", Source: "b", Target: "target", TargetHandle: "items"},
	}

	input := ResolveInput("target", edges, execCtx)

	items, ok := input["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"v": "first"}, items[0])
	assert.Equal(t, map[string]any{"v": "second"}, items[1])
}

func TestResolveInput_SkipsSourcesWithoutOutput(t *testing.T) {
	execCtx := newContextWithOutputs(t, nil)
	edges := []models.Edge{edge("never-ran", "target")}

	input := ResolveInput("target", edges, execCtx)

	assert.NotContains(t, input, "previous")
	assert.NotContains(t, input, "never-ran")
}

func TestResolveInput_IgnoresEdgesForOtherTargets(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"a": {"v": 1},
	})
	edges := []models.Edge{edge("a", "someone-else")}

	input := ResolveInput("target", edges, execCtx)

	assert.NotContains(t, input, "previous")
	assert.NotContains(t, input, "a")
}

func TestBuildScope_ExposesNodeOutputsByID(t *testing.T) {
	execCtx := newContextWithOutputs(t, map[string]map[string]any{
		"openai-1": {"content": "draft"},
	})

	input := ResolveInput("target", []models.Edge{edge("openai-1", "target")}, execCtx)
	scope := buildScope(execCtx, input)

	assert.Equal(t, map[string]any{"content": "draft"}, scope["openai-1"])
	assert.Equal(t, map[string]any{"amount": 1.5, "from": "sender"}, scope["trigger"])
	assert.Equal(t, input, scope["input"])
	assert.Equal(t, map[string]any{"content": "draft"}, scope["previous"])
}
