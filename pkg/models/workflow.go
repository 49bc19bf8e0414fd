// Package models defines the core domain models for node-based workflow automation.
package models

import "time"

// Node is a single node instance inside a workflow graph. Type selects the
// handler or provider adapter that executes it; Data is the node
// configuration and may embed {{variable}} expressions.
type Node struct {
	ID       string         `json:"id"       validate:"required"`
	Type     string         `json:"type"     validate:"required"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Position is the canvas placement of a node. The engine never reads it but
// round-trips it so editor layouts survive execution writes.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a directed dependency between two nodes: the target consumes the
// source's output. TargetHandle binds the source output to a named input
// slot; edges without one populate the generic "previous" slot.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// WorkflowDefinition is the node/edge graph of one workflow. It is immutable
// input to an execution: the executor reads it, never mutates it.
type WorkflowDefinition struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given id, if present.
func (d *WorkflowDefinition) NodeByID(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return Node{}, false
}

// Workflow is the persisted workflow record. Content holds the editable
// graph; Deployed marks it eligible for webhook-triggered execution.
type Workflow struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Name      string             `json:"name"    validate:"required,min=3"`
	Deployed  bool               `json:"deployed"`
	Content   WorkflowDefinition `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Trigger-class node types. Their output is supplied externally (webhook or
// blockchain watch) before the run starts; the executor never dispatches them.
var triggerNodeTypes = map[string]bool{
	"trigger":       true,
	"phantomWatch":  true,
	"metamaskWatch": true,
	"webhook":       true,
	"schedule":      true,
}

// IsTriggerNodeType reports whether the node type's output is supplied by a
// trigger payload rather than computed during the run.
func IsTriggerNodeType(nodeType string) bool {
	return triggerNodeTypes[nodeType]
}
