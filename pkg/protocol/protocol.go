// Package protocol defines the interfaces and contracts for provider
// adapters and built-in node handlers.
package protocol

import (
	"context"

	"github.com/zynthex/zynthex/pkg/models"
)

// ProviderAdapter executes one external service's operations behind a
// uniform contract. Adapters validate input and credentials, perform exactly
// one external call per operation, and map the raw response into a flat,
// stable output shape. They never retry internally; retry policy belongs to
// the caller.
type ProviderAdapter interface {
	// ProviderID returns the identifier used for dispatch (e.g. "alchemy").
	ProviderID() string

	// SupportedOperations returns the fixed operation ids this adapter
	// accepts (e.g. "alchemy.watchAddress").
	SupportedOperations() []string

	// Execute runs one named operation. It returns the operation's output
	// object or an error (validation, transport, or dispatch).
	Execute(ctx context.Context, operation string, input map[string]any, credential *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error)
}

// NodeHandler executes one family of built-in node types. Handlers receive
// the node's interpolated configuration merged with its resolved input
// (input wins on key collision) and return an output object or an error.
type NodeHandler interface {
	// Type returns the canonical node type this handler owns.
	Type() string

	// CanHandle reports whether the handler accepts the given node type,
	// including aliases (e.g. "http" and "httpRequest").
	CanHandle(nodeType string) bool

	// Execute runs the node. input is the interpolated config merged with
	// the resolved upstream input.
	Execute(ctx context.Context, input map[string]any, execCtx *models.ExecutionContext) (map[string]any, error)

	// Schema returns the JSON schema for the node's configuration, used by
	// the registry for edit-time validation. A nil schema skips validation.
	Schema() map[string]any
}
