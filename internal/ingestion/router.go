package ingestion

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// EventHandler defines a function that processes one webhook event
type EventHandler func(ctx context.Context, eventType model.WebhookEventType, metadata *model.WebhookMetadata, rawEvent []byte) error

// Router routes webhook events to the appropriate handler based on event type
type Router struct {
	handlers map[model.WebhookEventType]EventHandler
	// Default handler for unknown event types
	defaultHandler EventHandler
}

// NewRouter creates a new event router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.WebhookEventType]EventHandler),
	}
}

// Register registers a handler for an event type
func (r *Router) Register(eventType model.WebhookEventType, handler EventHandler) {
	r.handlers[eventType] = handler
}

// RegisterDefault registers a default handler for unknown event types
func (r *Router) RegisterDefault(handler EventHandler) {
	r.defaultHandler = handler
}

// Route normalises the provider event name and hands the payload to its handler.
// Events nobody handles are logged and acknowledged.
func (r *Router) Route(ctx context.Context, metadata *model.WebhookMetadata, rawEvent []byte) error {
	if metadata.RequestID == "" {
		metadata.RequestID = uuid.NewString()
	}
	ctx = tenant.WithRequestID(ctx, metadata.RequestID)

	log := logger.FromContext(ctx).With(
		zap.String("event", metadata.Event),
		zap.String("instance", metadata.Instance),
	)
	ctx = logger.WithLogger(ctx, log)

	eventType, found := model.NormalizeWebhookEvent(metadata.Event)
	if !found {
		log.Debug("Could not map webhook event to a known type")
	}

	log.Debug("Webhook event received", zap.Int("payload_bytes", len(rawEvent)))

	handler, ok := r.handlers[eventType]
	if !ok && r.defaultHandler != nil {
		handler = r.defaultHandler
	} else if !ok {
		log.Info("No handler registered for webhook event, ignoring")
		return nil
	}

	// A panicking handler surfaces as an error; the delivery is still acknowledged.
	return utils.WrapWithContextRecovery(func(ctx context.Context) error {
		return handler(ctx, eventType, metadata, rawEvent)
	})(ctx)
}
