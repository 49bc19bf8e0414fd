package workflow

import (
	"github.com/zynthex/zynthex/pkg/models"
)

// ResolveInput computes a node's effective input from its incoming edges and
// the running context.
//
// Shape rules:
//   - input.trigger and input.nodes are always present, so every node can
//     reference the original trigger or any completed upstream node by id
//     even without a direct edge.
//   - Each distinct targetHandle gets its source's output; two or more edges
//     on the same handle produce an array in edge iteration order.
//   - Edges without a handle populate input.previous (single output or
//     array), and each generic source's output is also exposed at
//     input[sourceNodeID] for direct addressing.
func ResolveInput(nodeID string, edges []models.Edge, execCtx *models.ExecutionContext) map[string]any {
	input := map[string]any{
		"trigger": execCtx.Trigger.Output,
		"nodes":   execCtx.NodeOutputsSnapshot(),
	}

	handled := make(map[string][]any)

	var (
		handleOrder []string
		previous    []any
	)

	for _, edge := range edges {
		if edge.Target != nodeID {
			continue
		}

		state, ok := execCtx.Nodes[edge.Source]
		if !ok || state.Output == nil {
			continue
		}

		if edge.TargetHandle != "" {
			if _, seen := handled[edge.TargetHandle]; !seen {
				handleOrder = append(handleOrder, edge.TargetHandle)
			}

			handled[edge.TargetHandle] = append(handled[edge.TargetHandle], state.Output)

			continue
		}

		previous = append(previous, state.Output)
		input[edge.Source] = state.Output
	}

	for _, handle := range handleOrder {
		outputs := handled[handle]
		if len(outputs) == 1 {
			input[handle] = outputs[0]
		} else {
			input[handle] = outputs
		}
	}

	switch len(previous) {
	case 0:
	case 1:
		input["previous"] = previous[0]
	default:
		input["previous"] = previous
	}

	return input
}

// buildScope assembles the variable-resolution scope for one node: the
// flattened trigger output, every completed node's output under its id, the
// adapter-shaped results under "nodes", and the node's own resolved input
// under "input"/"previous".
func buildScope(execCtx *models.ExecutionContext, input map[string]any) map[string]any {
	scope := make(map[string]any, len(execCtx.Nodes)+4)

	for id, state := range execCtx.Nodes {
		scope[id] = state.Output
	}

	scope["trigger"] = execCtx.Trigger.Output
	scope["nodes"] = execCtx.NodeOutputsSnapshot()
	scope["input"] = input

	if prev, ok := input["previous"]; ok {
		scope["previous"] = prev
	}

	return scope
}
