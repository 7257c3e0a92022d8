package handler

import (
	"context"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// EventHandlerInterface defines the common interface for webhook event handlers
type EventHandlerInterface interface {
	// HandleEvent processes an event
	HandleEvent(ctx context.Context, eventType model.WebhookEventType, metadata *model.WebhookMetadata, rawEvent []byte) error
}

// WebhookService is the inbound pipeline the handler drives.
type WebhookService interface {
	HandleIncoming(ctx context.Context, msg model.IncomingMessage) (string, error)
	HandleConnectionUpdate(ctx context.Context, instance, state string) error
}

// Ensure the handlers implement the interfaces
var _ EventHandlerInterface = (*WebhookHandler)(nil)
