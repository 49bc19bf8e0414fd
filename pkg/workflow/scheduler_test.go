package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/models"
)

func node(id, nodeType string) models.Node {
	return models.Node{ID: id, Type: nodeType, Data: map[string]any{}}
}

func edge(source, target string) models.Edge {
	return models.Edge{ID: source + "-" + target, Source: source, Target: target}
}

func TestTopologicalOrder_LinearChain(t *testing.T) {
	nodes := []models.Node{node("c", "slack"), node("a", "trigger"), node("b", "openai")}
	edges := []models.Edge{edge("a", "b"), edge("b", "c")}

	sorted := TopologicalOrder(nodes, edges)

	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
	assert.Equal(t, "c", sorted[2].ID)
}

func TestTopologicalOrder_DiamondRespectsDependencies(t *testing.T) {
	nodes := []models.Node{
		node("start", "trigger"),
		node("left", "openai"),
		node("right", "http"),
		node("join", "slack"),
	}
	edges := []models.Edge{
		edge("start", "left"),
		edge("start", "right"),
		edge("left", "join"),
		edge("right", "join"),
	}

	sorted := TopologicalOrder(nodes, edges)
	require.Len(t, sorted, 4)

	position := make(map[string]int, len(sorted))
	for i, n := range sorted {
		position[n.ID] = i
	}

	assert.Less(t, position["start"], position["left"])
	assert.Less(t, position["start"], position["right"])
	assert.Less(t, position["left"], position["join"])
	assert.Less(t, position["right"], position["join"])
}

func TestTopologicalOrder_DisconnectedNodesIncluded(t *testing.T) {
	nodes := []models.Node{node("a", "trigger"), node("island", "code")}

	sorted := TopologicalOrder(nodes, nil)

	assert.Len(t, sorted, 2)
}

func TestTopologicalOrder_CycleNodesExcluded(t *testing.T) {
	nodes := []models.Node{
		node("a", "trigger"),
		node("b", "openai"),
		node("c", "slack"),
	}
	edges := []models.Edge{
		edge("a", "b"),
		edge("b", "c"),
		edge("c", "b"),
	}

	sorted := TopologicalOrder(nodes, edges)

	require.Len(t, sorted, 1)
	assert.Equal(t, "a", sorted[0].ID)

	dropped := droppedNodeIDs(nodes, sorted)
	assert.ElementsMatch(t, []string{"b", "c"}, dropped)
}

func TestValidateOrder(t *testing.T) {
	nodes := []models.Node{node("a", "trigger"), node("b", "openai")}

	err := validateOrder(nodes, nodes)
	require.NoError(t, err)

	err = validateOrder(nodes, nodes[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
	assert.Contains(t, err.Error(), "b")
}
