// Package webhook implements the respond provider adapter: it hands a
// response body back to the webhook producer that started the run.
package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/events"
	"github.com/zynthex/zynthex/pkg/models"
	"github.com/zynthex/zynthex/pkg/protocol"
)

const OperationRespond = "respond"

// Adapter publishes a WebhookResponse event. The webhook endpoint holding
// the original HTTP request subscribes for its execution id and replies with
// the published status and body.
type Adapter struct {
	publisher eventbus.EventPublisher
}

func NewAdapter(publisher eventbus.EventPublisher) *Adapter {
	return &Adapter{publisher: publisher}
}

func (a *Adapter) ProviderID() string {
	return "webhook"
}

func (a *Adapter) SupportedOperations() []string {
	return []string{OperationRespond}
}

func (a *Adapter) Execute(ctx context.Context, operation string, input map[string]any, _ *models.Credential, execCtx *models.ExecutionContext) (map[string]any, error) {
	if operation != OperationRespond {
		return nil, &protocol.DispatchError{Provider: a.ProviderID(), Operation: operation}
	}

	statusCode := 200
	if v, ok := input["statusCode"].(float64); ok && v >= 100 && v < 600 {
		statusCode = int(v)
	}

	body, _ := input["body"].(map[string]any)
	if body == nil {
		body = map[string]any{}

		if message, ok := input["message"].(string); ok && message != "" {
			body["message"] = message
		}
	}

	event := events.WebhookResponse{
		BaseEvent: events.BaseEvent{
			ID:         uuid.NewString(),
			Type:       events.WebhookResponseEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: execCtx.WorkflowID,
		},
		ExecutionID: execCtx.ExecutionID,
		StatusCode:  statusCode,
		Body:        body,
	}

	if err := a.publisher.Publish(ctx, event); err != nil {
		return nil, err
	}

	return map[string]any{
		"responded":  true,
		"statusCode": statusCode,
		"body":       body,
	}, nil
}
