package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// WebhookHandler decodes provider webhook payloads and drives the inbound pipeline
type WebhookHandler struct {
	service WebhookService
}

// NewWebhookHandler creates a new webhook event handler
func NewWebhookHandler(service WebhookService) *WebhookHandler {
	return &WebhookHandler{
		service: service,
	}
}

// HandleEvent processes a webhook event
func (h *WebhookHandler) HandleEvent(ctx context.Context, eventType model.WebhookEventType, metadata *model.WebhookMetadata, rawEvent []byte) error {
	switch eventType {
	case model.WebhookMessagesUpsert:
		return h.handleMessagesUpsert(ctx, metadata, rawEvent)
	case model.WebhookConnectionUpdate:
		return h.handleConnectionUpdate(ctx, metadata, rawEvent)
	default:
		return h.HandleUnknown(ctx, eventType, metadata, rawEvent)
	}
}

// HandleUnknown acknowledges events the CRM does not consume.
func (h *WebhookHandler) HandleUnknown(ctx context.Context, _ model.WebhookEventType, metadata *model.WebhookMetadata, _ []byte) error {
	logger.FromContext(ctx).Debug("Ignoring unsupported webhook event", zap.String("event", metadata.Event))
	observer.IncWebhookAction(metadata.Event, "", "ignored", "")
	return nil
}

func (h *WebhookHandler) handleMessagesUpsert(ctx context.Context, metadata *model.WebhookMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)
	eventType := string(model.WebhookMessagesUpsert)

	var payload model.MessagesUpsertPayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Warn("Failed to unmarshal messages upsert payload", zap.Error(err))
		observer.IncWebhookAction(eventType, "", "dropped", "malformed_body")
		return apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err), "failed to unmarshal messages upsert payload")
	}

	msg, skip := NormalizeMessagesUpsert(&payload, metadata.Instance)
	if skip != "" {
		log.Debug("Skipping provider message", zap.String("reason", skip))
		observer.IncWebhookAction(eventType, "", "skipped", skip)
		return nil
	}

	_, err := h.service.HandleIncoming(ctx, msg)
	return err
}

func (h *WebhookHandler) handleConnectionUpdate(ctx context.Context, metadata *model.WebhookMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx)
	eventType := string(model.WebhookConnectionUpdate)

	var payload model.ConnectionUpdatePayload
	if err := json.Unmarshal(rawEvent, &payload); err != nil {
		log.Warn("Failed to unmarshal connection update payload", zap.Error(err))
		observer.IncWebhookAction(eventType, "", "dropped", "malformed_body")
		return apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err), "failed to unmarshal connection update payload")
	}

	instance := payload.InstanceID()
	if instance == "" {
		instance = metadata.Instance
	}
	if instance == "" || payload.State == "" {
		log.Debug("Connection update without instance or state, skipping")
		observer.IncWebhookAction(eventType, "", "skipped", "missing_fields")
		return nil
	}

	return h.service.HandleConnectionUpdate(ctx, instance, payload.State)
}
