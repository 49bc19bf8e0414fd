// Package events defines event types for workflow execution notifications.
// UI collaborators subscribe to these to drive live canvas updates.
package events

import (
	"time"
)

type EventType string

// Topic carries all execution lifecycle events.
const Topic = "zynthex.executions"

const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution_started"
	NodeOutputEvent         EventType = "node_output"
	ExecutionCompletedEvent EventType = "execution_completed"
	ExecutionFailedEvent    EventType = "execution_failed"
	WebhookReceivedEvent    EventType = "webhook_received"
	WebhookResponseEvent    EventType = "webhook_response"
)

// Event is implemented by every published payload.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type NodeOutput struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	Output      map[string]any `json:"output,omitempty"`
}

func (e NodeOutput) GetType() EventType {
	return NodeOutputEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	NodesRun    int           `json:"nodes_run"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type WebhookReceived struct {
	BaseEvent

	NodeID      string         `json:"node_id"`
	Transaction map[string]any `json:"transaction,omitempty"`
}

func (e WebhookReceived) GetType() EventType {
	return WebhookReceivedEvent
}

// WebhookResponse is published by the "respond" adapter operation so the
// waiting webhook producer can reply to its caller.
type WebhookResponse struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	StatusCode  int            `json:"status_code"`
	Body        map[string]any `json:"body,omitempty"`
}

func (e WebhookResponse) GetType() EventType {
	return WebhookResponseEvent
}
