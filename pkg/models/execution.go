package models

import "time"

// ExecutionStatus is the lifecycle state of a persisted workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// NodeStatus labels a single execution-log entry.
type NodeStatus string

const (
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// NodeExecutionResult is the adapter-facing result shape. Adapters and the
// executor populate it; the interpolator resolves `nodes.<id>.<field>` paths
// through its JSON form.
type NodeExecutionResult struct {
	Success     bool           `json:"success"`
	Output      map[string]any `json:"output"`
	Logs        []string       `json:"logs,omitempty"`
	TriggeredAt time.Time      `json:"triggeredAt"`
}

// ExecutionLogEntry records one attempted node. Append-only during a run;
// a node that throws still gets an entry before the run aborts.
type ExecutionLogEntry struct {
	NodeID    string     `json:"nodeId"`
	NodeType  string     `json:"nodeType"`
	Status    NodeStatus `json:"status"`
	Input     any        `json:"input"`
	Output    any        `json:"output"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// WorkflowExecution is the persisted audit trail of one run. Created with
// status "running" before any node executes, then mutated exactly once to a
// terminal status.
type WorkflowExecution struct {
	ID           string              `json:"id"`
	WorkflowID   string              `json:"workflow_id"`
	UserID       string              `json:"user_id"`
	Status       ExecutionStatus     `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	TriggerInput map[string]any      `json:"trigger_input,omitempty"`
	Result       map[string]any      `json:"result,omitempty"`
	ExecutionLog []ExecutionLogEntry `json:"execution_log,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// NodeState is the light per-node wrapper kept in the execution context for
// legacy dot-path lookups. It must stay in sync with the richer
// NodeExecutionResult stored alongside it.
type NodeState struct {
	Output map[string]any `json:"output"`
}

// TriggerState wraps the normalized trigger payload.
type TriggerState struct {
	Output map[string]any `json:"output"`
}

// ExecutionContext is the in-memory accumulator for one workflow run:
// trigger output, per-node outputs, adapter-shaped results and the user's
// credentials keyed by provider. Created at run start, mutated by the
// executor as nodes complete, discarded at run end.
type ExecutionContext struct {
	ExecutionID string                         `json:"execution_id"`
	WorkflowID  string                         `json:"workflow_id,omitempty"`
	UserID      string                         `json:"user_id"`
	Trigger     TriggerState                   `json:"trigger"`
	Nodes       map[string]NodeState           `json:"nodes"`
	NodeOutputs map[string]NodeExecutionResult `json:"node_outputs"`
	Credentials map[string]*Credential         `json:"-"`
}

// NewExecutionContext builds a fresh context for one run. The trigger output
// should already be normalized (flattened transaction fields).
func NewExecutionContext(executionID, workflowID, userID string, triggerOutput map[string]any, credentials map[string]*Credential) *ExecutionContext {
	if credentials == nil {
		credentials = make(map[string]*Credential)
	}

	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		UserID:      userID,
		Trigger:     TriggerState{Output: triggerOutput},
		Nodes:       make(map[string]NodeState),
		NodeOutputs: make(map[string]NodeExecutionResult),
		Credentials: credentials,
	}
}

// SetNodeOutput records a completed node in both the legacy and the
// adapter-shaped maps, keeping the two lookup shapes in sync.
func (c *ExecutionContext) SetNodeOutput(nodeID string, output map[string]any, result NodeExecutionResult) {
	c.Nodes[nodeID] = NodeState{Output: output}
	c.NodeOutputs[nodeID] = result
}

// NodeOutputsSnapshot returns a plain-object view of the adapter-shaped
// results, suitable for the interpolator's `nodes.<id>.<field>` paths and
// for a node's `input.nodes` field.
func (c *ExecutionContext) NodeOutputsSnapshot() map[string]any {
	snapshot := make(map[string]any, len(c.NodeOutputs))
	for id, result := range c.NodeOutputs {
		snapshot[id] = map[string]any{
			"success":     result.Success,
			"output":      result.Output,
			"logs":        result.Logs,
			"triggeredAt": result.TriggeredAt,
		}
	}

	return snapshot
}

// CredentialFor returns the user's credential for a provider, or nil.
func (c *ExecutionContext) CredentialFor(provider string) *Credential {
	return c.Credentials[provider]
}
