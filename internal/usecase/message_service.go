package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/validator"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// CreateInboundMessage stores a provider message on the ticket, deduplicated by
// (company, externalId). Side effects run only when the row was created here.
func (s *CRMService) CreateInboundMessage(ctx context.Context, companyID, ticketID string, in model.InboundMessage) (*model.Message, bool, error) {
	ctx = scoped(ctx, companyID)

	if in.ExternalID == "" {
		return nil, false, apperrors.NewFatal(apperrors.ErrValidation, "inbound message without external id")
	}

	candidate := model.Message{
		ID:         uuid.NewString(),
		CompanyID:  companyID,
		TicketID:   ticketID,
		ExternalID: model.StringPtr(in.ExternalID),
		Content:    in.Content,
		FromMe:     false,
		MediaURL:   model.StringPtr(in.MediaURL),
		MediaType:  model.StringPtr(in.MediaType),
		Status:     model.MessageStatusReceived,
	}

	msg, created, err := s.messageRepo.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, handleRepositoryError(ctx, err, "CreateInboundMessage", in.ExternalID)
	}
	if !created {
		logger.FromContext(ctx).Debug("Duplicate inbound message ignored",
			zap.String("external_id", in.ExternalID),
			zap.String("message_id", msg.ID))
		return msg, false, nil
	}

	// The row is committed and a redelivery would hit the dedup path, so the
	// events go out even when the ticket touch fails.
	touchErr := s.ticketRepo.Touch(ctx, ticketID)

	s.emit(companyID, model.EventMessageCreated, msg)
	s.emit(companyID, model.EventTicketUpdated, model.TicketUpdatedData{TicketID: ticketID})

	if touchErr != nil {
		return msg, true, handleRepositoryError(ctx, touchErr, "TouchTicket", ticketID)
	}
	return msg, true, nil
}

// CreateOutboundMessage stores a user-authored message as PENDING and enqueues
// it for delivery. When enqueueing fails the message is left FAILED.
func (s *CRMService) CreateOutboundMessage(ctx context.Context, companyID, ticketID string, out model.OutboundMessage) (*model.Message, error) {
	ctx = scoped(ctx, companyID)
	log := logger.FromContext(ctx).With(zap.String("ticket_id", ticketID))

	if err := validator.Validate(out); err != nil {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %v", apperrors.ErrValidation, err), "invalid outbound message")
	}

	ticket, err := s.ticketRepo.FindWithRelations(ctx, ticketID)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketWithRelations", ticketID)
	}
	if ticket.Contact == nil || ticket.ChannelAccount == nil {
		return nil, apperrors.NewFatal(
			fmt.Errorf("%w: ticket %s has no contact or channel account", apperrors.ErrConfiguration, ticketID),
			"create outbound message")
	}

	msg, err := s.messageRepo.Create(ctx, model.Message{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		TicketID:  ticketID,
		Content:   out.Content,
		FromMe:    true,
		MediaURL:  model.StringPtr(out.MediaURL),
		MediaType: model.StringPtr(out.MediaType),
		Status:    model.MessageStatusPending,
		SenderID:  out.SenderID,
	})
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "CreateOutboundMessage", ticketID)
	}

	if err := s.ticketRepo.Touch(ctx, ticketID); err != nil {
		log.Warn("Failed to touch ticket, dispatching anyway", zap.String("message_id", msg.ID), zap.Error(err))
	}

	job := model.DispatchJob{
		MessageID:   msg.ID,
		CompanyID:   companyID,
		SessionName: ticket.ChannelAccount.SessionName,
		Phone:       ticket.Contact.Phone,
		Content:     out.Content,
		MediaURL:    out.MediaURL,
		MediaType:   out.MediaType,
	}

	var enqueueErr error
	if s.enqueuer == nil {
		enqueueErr = fmt.Errorf("%w: no dispatch queue configured", apperrors.ErrConfiguration)
	} else {
		enqueueErr = s.enqueuer.Enqueue(ctx, job)
	}
	if enqueueErr != nil {
		log.Error("Failed to enqueue outbound message", zap.String("message_id", msg.ID), zap.Error(enqueueErr))
		if _, err := s.messageRepo.UpdateStatus(ctx, msg.ID, model.MessageStatusFailed); err != nil {
			log.Error("Failed to mark message as FAILED", zap.String("message_id", msg.ID), zap.Error(err))
		}
		msg.Status = model.MessageStatusFailed
	}

	s.emit(companyID, model.EventMessageCreated, msg)
	s.emit(companyID, model.EventTicketUpdated, model.TicketUpdatedData{TicketID: ticketID})

	if enqueueErr != nil {
		return msg, apperrors.NewRetryable(enqueueErr, "enqueue message %s", msg.ID)
	}
	log.Info("Outbound message enqueued", zap.String("message_id", msg.ID))
	return msg, nil
}

// MarkStatus records a delivery outcome. A message that no longer exists is
// logged and ignored so the dispatch worker can settle its delivery.
func (s *CRMService) MarkStatus(ctx context.Context, companyID, messageID, status string) error {
	ctx = scoped(ctx, companyID)

	found, err := s.messageRepo.UpdateStatus(ctx, messageID, status)
	if err != nil {
		return handleRepositoryError(ctx, err, "UpdateMessageStatus", messageID)
	}
	if !found {
		logger.FromContext(ctx).Warn("Status update for unknown message ignored",
			zap.String("message_id", messageID),
			zap.String("status", status))
	}
	return nil
}

// MarkAsRead moves an inbound message to READ.
func (s *CRMService) MarkAsRead(ctx context.Context, companyID, messageID string) error {
	ctx = scoped(ctx, companyID)

	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return handleRepositoryError(ctx, err, "FindMessageByID", messageID)
	}
	if msg.FromMe {
		return apperrors.NewFatal(
			fmt.Errorf("%w: message %s is outbound", apperrors.ErrValidation, messageID),
			"mark as read")
	}
	if msg.Status == model.MessageStatusRead {
		return nil
	}

	if _, err := s.messageRepo.UpdateStatus(ctx, messageID, model.MessageStatusRead); err != nil {
		return handleRepositoryError(ctx, err, "UpdateMessageStatus", messageID)
	}
	return nil
}

// ListTicketMessages returns the ticket's messages oldest first.
func (s *CRMService) ListTicketMessages(ctx context.Context, companyID, ticketID string) ([]model.Message, error) {
	ctx = scoped(ctx, companyID)

	if _, err := s.ticketRepo.FindByID(ctx, ticketID); err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketByID", ticketID)
	}

	messages, err := s.messageRepo.ListByTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, handleRepositoryError(ctx, err, "ListMessagesByTicket", ticketID)
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}
