package ingestion

import (
	"context"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// RouterInterface defines the interface for a webhook event router
type RouterInterface interface {
	// Register registers a handler for an event type
	Register(eventType model.WebhookEventType, handler EventHandler)

	// RegisterDefault registers a default handler for unknown event types
	RegisterDefault(handler EventHandler)

	// Route routes an event to the appropriate handler
	Route(ctx context.Context, metadata *model.WebhookMetadata, rawEvent []byte) error
}

// Ensure Router implements RouterInterface
var _ RouterInterface = (*Router)(nil)
