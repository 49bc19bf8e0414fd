package code

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
)

func newExecCtx() *models.ExecutionContext {
	return models.NewExecutionContext("exec-1", "wf-1", "user-1",
		map[string]any{"amount": 2.0}, nil)
}

func TestExecute_ReturnsObjectResult(t *testing.T) {
	n := NewNode()

	input := map[string]any{
		"code":   "return { doubled: input.value * 2 };",
		"value":  21,
		"amount": 3,
	}

	output, err := n.Execute(context.Background(), input, newExecCtx())
	require.NoError(t, err)
	assert.EqualValues(t, 42, output["doubled"])
}

func TestExecute_WrapsScalarResult(t *testing.T) {
	n := NewNode()

	output, err := n.Execute(context.Background(), map[string]any{"code": "return 1 + 1;"}, newExecCtx())
	require.NoError(t, err)
	assert.EqualValues(t, 2, output["result"])
}

func TestExecute_ContextExposesTrigger(t *testing.T) {
	n := NewNode()

	output, err := n.Execute(context.Background(),
		map[string]any{"code": "return { amount: context.trigger.amount };"}, newExecCtx())
	require.NoError(t, err)
	assert.EqualValues(t, 2.0, output["amount"])
}

func TestExecute_MissingCode(t *testing.T) {
	n := NewNode()

	_, err := n.Execute(context.Background(), map[string]any{}, newExecCtx())
	require.Error(t, err)
}

func TestExecute_SyntaxErrorSurfaces(t *testing.T) {
	n := NewNode()

	_, err := n.Execute(context.Background(), map[string]any{"code": "return {{{"}, newExecCtx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code execution failed")
}
