// Package registry holds the provider adapters and node handlers a running
// engine dispatches to.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zynthex/zynthex/pkg/protocol"
)

type Registry struct {
	logger   *slog.Logger
	adapters map[string]protocol.ProviderAdapter
	handlers []protocol.NodeHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		adapters: make(map[string]protocol.ProviderAdapter),
	}
}

func (r *Registry) RegisterAdapter(adapter protocol.ProviderAdapter) {
	r.adapters[adapter.ProviderID()] = adapter
}

func (r *Registry) RegisterHandler(handler protocol.NodeHandler) {
	r.handlers = append(r.handlers, handler)
}

// AdapterFor resolves a provider id to its adapter. Unknown providers are a
// hard error at dispatch time.
func (r *Registry) AdapterFor(providerID string) (protocol.ProviderAdapter, error) {
	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, &protocol.DispatchError{Provider: providerID}
	}

	return adapter, nil
}

// HandlerFor finds the first registered handler accepting the node type.
func (r *Registry) HandlerFor(nodeType string) (protocol.NodeHandler, bool) {
	for _, handler := range r.handlers {
		if handler.CanHandle(nodeType) {
			return handler, true
		}
	}

	return nil, false
}

// ValidateNodeConfig checks a node's configuration against its handler's
// JSON schema. Node types without a handler or schema validate trivially.
func (r *Registry) ValidateNodeConfig(nodeType string, config map[string]any) error {
	handler, ok := r.HandlerFor(nodeType)
	if !ok || handler.Schema() == nil {
		return nil
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal node config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(handler.Schema()),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to validate node config: %w", err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			return fmt.Errorf("invalid %s node config: %s", nodeType, desc.String())
		}
	}

	return nil
}
