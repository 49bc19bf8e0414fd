// Package postgresnode bridges postgres-typed nodes onto the postgres
// provider adapter, selecting the operation from the node configuration.
package postgresnode

import (
	"context"

	"github.com/zynthex/zynthex/pkg/adapters/postgres"
	"github.com/zynthex/zynthex/pkg/models"
)

type Node struct {
	adapter *postgres.Adapter
}

func NewNode(adapter *postgres.Adapter) *Node {
	return &Node{adapter: adapter}
}

func (n *Node) Type() string {
	return "postgres"
}

func (n *Node) CanHandle(nodeType string) bool {
	return nodeType == "postgres"
}

func (n *Node) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation":        map[string]any{"type": "string"},
			"connectionString": map[string]any{"type": "string"},
			"query":            map[string]any{"type": "string"},
			"table":            map[string]any{"type": "string"},
			"schema":           map[string]any{"type": "string"},
			"where":            map[string]any{"type": "string"},
			"data":             map[string]any{"type": "object"},
		},
	}
}

func (n *Node) Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	operation := postgres.OperationQuery
	if v, ok := input["operation"].(string); ok && v != "" {
		operation = v
	}

	credential := execCtx.CredentialFor("postgres")

	return n.adapter.Execute(ctx, operation, input, credential, execCtx)
}
