package workflow

import (
	"fmt"

	"github.com/zynthex/zynthex/pkg/models"
)

// TopologicalOrder sorts nodes so that every node appears after all nodes it
// depends on (all sources of edges targeting it), using Kahn's algorithm
// with FIFO tie-breaking. Nodes unreachable because of a cycle are excluded
// from the result; callers that want that to be an error compare the result
// length against len(nodes).
func TopologicalOrder(nodes []models.Node, edges []models.Edge) []models.Node {
	adjacency := make(map[string][]string, len(nodes))
	inDegree := make(map[string]int, len(nodes))

	for _, node := range nodes {
		adjacency[node.ID] = nil
		inDegree[node.ID] = 0
	}

	for _, edge := range edges {
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	queue := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	byID := make(map[string]models.Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	sorted := make([]models.Node, 0, len(nodes))

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if node, ok := byID[nodeID]; ok {
			sorted = append(sorted, node)
		}

		for _, targetID := range adjacency[nodeID] {
			inDegree[targetID]--
			if inDegree[targetID] == 0 {
				queue = append(queue, targetID)
			}
		}
	}

	return sorted
}

// droppedNodeIDs returns the ids of nodes missing from a topological order,
// i.e. members of a cycle with no alternate acyclic path.
func droppedNodeIDs(nodes []models.Node, sorted []models.Node) []string {
	seen := make(map[string]bool, len(sorted))
	for _, node := range sorted {
		seen[node.ID] = true
	}

	var dropped []string

	for _, node := range nodes {
		if !seen[node.ID] {
			dropped = append(dropped, node.ID)
		}
	}

	return dropped
}

// validateOrder enforces the strict-cycle policy: when enabled, a graph
// whose topological order omits nodes fails before anything executes.
func validateOrder(nodes []models.Node, sorted []models.Node) error {
	if dropped := droppedNodeIDs(nodes, sorted); len(dropped) > 0 {
		return fmt.Errorf("workflow graph contains a cycle involving nodes %v", dropped)
	}

	return nil
}
