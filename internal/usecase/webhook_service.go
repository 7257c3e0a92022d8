package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/validator"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// Webhook pipeline outcomes, used as the metrics action label.
const (
	ActionCreated   = "created"
	ActionDuplicate = "duplicate"
	ActionDropped   = "dropped"
	ActionFailed    = "failed"
)

// HandleIncoming runs the inbound pipeline for one provider message: resolve
// the channel account by session, then the contact, the open ticket and
// finally the deduplicated message. Unknown sessions and empty messages are
// dropped without error.
func (s *CRMService) HandleIncoming(ctx context.Context, in model.IncomingMessage) (string, error) {
	eventType := string(model.WebhookMessagesUpsert)
	startTime := utils.Now()
	log := logger.FromContext(ctx).With(
		zap.String("instance", in.Instance),
		zap.String("external_id", in.ExternalID),
	)

	if err := validator.Validate(in); err != nil {
		log.Warn("Dropping malformed inbound message", zap.Error(err))
		observer.IncWebhookAction(eventType, "", ActionDropped, "validation")
		return ActionDropped, apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid inbound message")
	}

	account, err := s.accountRepo.FindBySession(ctx, in.Instance)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Warn("No channel account for session, dropping message")
			observer.IncWebhookAction(eventType, "", ActionDropped, "unknown_session")
			return ActionDropped, nil
		}
		observer.IncWebhookAction(eventType, "", ActionFailed, err.Error())
		return ActionFailed, handleRepositoryError(ctx, err, "FindChannelAccountBySession", in.Instance)
	}

	companyID := account.CompanyID
	log = log.With(zap.String("company_id", companyID))

	if strings.TrimSpace(in.Content) == "" {
		log.Debug("Message without text content, dropping")
		observer.IncWebhookAction(eventType, companyID, ActionDropped, "empty_content")
		return ActionDropped, nil
	}

	action, err := s.persistIncoming(ctx, companyID, account.ID, in)
	if err != nil {
		log.Error("Inbound pipeline failed", zap.Error(err))
		observer.IncWebhookAction(eventType, companyID, ActionFailed, err.Error())
		return ActionFailed, err
	}

	observer.IncWebhookAction(eventType, companyID, action, "")
	observer.ObservePipelineDuration(eventType, companyID, time.Since(startTime))
	log.Debug("Inbound message processed", zap.String("action", action))
	return action, nil
}

func (s *CRMService) persistIncoming(ctx context.Context, companyID, channelAccountID string, in model.IncomingMessage) (string, error) {
	contact, err := s.ResolveContact(ctx, companyID, in.Phone, model.ContactHint{Name: in.PushName})
	if err != nil {
		return "", err
	}

	ticket, err := s.GetOrCreateTicket(ctx, companyID, contact.ID, channelAccountID)
	if err != nil {
		return "", err
	}

	_, created, err := s.CreateInboundMessage(ctx, companyID, ticket.ID, model.InboundMessage{
		ExternalID: in.ExternalID,
		Content:    in.Content,
	})
	if err != nil {
		return "", err
	}
	if !created {
		return ActionDuplicate, nil
	}
	return ActionCreated, nil
}

// HandleConnectionUpdate overwrites the status of every channel account bound
// to the session. Out-of-order updates are not reconciled.
func (s *CRMService) HandleConnectionUpdate(ctx context.Context, instance, state string) error {
	eventType := string(model.WebhookConnectionUpdate)
	log := logger.FromContext(ctx).With(zap.String("instance", instance))

	status := model.NormalizeConnectionState(state)
	if instance == "" || status == "" {
		observer.IncWebhookAction(eventType, "", ActionDropped, "validation")
		return apperrors.NewFatal(apperrors.ErrValidation, "connection update requires instance and state")
	}

	updated, err := s.accountRepo.UpdateStatusBySession(ctx, instance, status)
	if err != nil {
		observer.IncWebhookAction(eventType, "", ActionFailed, err.Error())
		return handleRepositoryError(ctx, err, "UpdateChannelAccountStatus", instance)
	}
	if updated == 0 {
		log.Warn("Connection update for unknown session", zap.String("state", status))
		observer.IncWebhookAction(eventType, "", ActionDropped, "unknown_session")
		return nil
	}

	log.Info("Channel account status updated", zap.String("state", status), zap.Int64("accounts", updated))
	observer.IncWebhookAction(eventType, "", "updated", "")
	return nil
}
