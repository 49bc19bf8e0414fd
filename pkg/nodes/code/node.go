// Package code provides the JavaScript code node, executed in an embedded
// interpreter with no host access.
package code

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const executionTimeout = 5 * time.Second

type Node struct{}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Type() string {
	return "code"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "code"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"code"},
		"properties": map[string]any{
			"code": map[string]any{"type": "string"},
		},
	}
}

// Execute runs the configured script as a function body receiving (input,
// context), mirroring how inline code nodes are authored in the editor.
func (n *Node) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	script, _ := input["code"].(string)
	if script == "" {
		return nil, protocol.Validationf("code is required")
	}

	vm := goja.New()

	if err := vm.Set("input", input); err != nil {
		return nil, fmt.Errorf("failed to bind input: %w", err)
	}

	scriptContext := map[string]any{
		"executionId": execCtx.ExecutionID,
		"workflowId":  execCtx.WorkflowID,
		"trigger":     execCtx.Trigger.Output,
		"nodes":       execCtx.NodeOutputsSnapshot(),
	}

	if err := vm.Set("context", scriptContext); err != nil {
		return nil, fmt.Errorf("failed to bind context: %w", err)
	}

	timer := time.AfterFunc(executionTimeout, func() {
		vm.Interrupt("code execution timed out")
	})
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt("execution canceled")
	})
	defer stop()

	value, err := vm.RunString("(function(input, context) {\n" + script + "\n})(input, context)")
	if err != nil {
		return nil, fmt.Errorf("code execution failed: %w", err)
	}

	exported := value.Export()

	if result, ok := exported.(map[string]any); ok {
		return result, nil
	}

	return map[string]any{"result": exported}, nil
}
