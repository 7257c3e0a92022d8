package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// GetOrCreateTicket returns the open ticket of the conversation, creating it on
// the first step of the tenant's default funnel when none exists.
func (s *CRMService) GetOrCreateTicket(ctx context.Context, companyID, contactID, channelAccountID string) (*model.Ticket, error) {
	ctx = scoped(ctx, companyID)

	ticket, err := s.ticketRepo.FindOpen(ctx, contactID, channelAccountID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, handleRepositoryError(ctx, err, "FindOpenTicket", contactID)
	}

	step, err := s.funnelRepo.FindDefaultFirstStep(ctx)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "FindDefaultFirstStep", companyID)
	}

	candidate := model.Ticket{
		ID:               uuid.NewString(),
		CompanyID:        companyID,
		ContactID:        contactID,
		ChannelAccountID: channelAccountID,
		FunnelStepID:     step.ID,
		LastMessageAt:    utils.Now(),
	}
	ticket, err = s.ticketRepo.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "CreateTicket", contactID)
	}

	if ticket.ID == candidate.ID {
		logger.FromContext(ctx).Info("Ticket created",
			zap.String("ticket_id", ticket.ID),
			zap.String("funnel_step_id", step.ID))
	}
	return ticket, nil
}

// MoveTicketToStep moves a ticket to a step of one of the tenant's funnels.
// A step owned by another tenant is a validation error and leaves the ticket unchanged.
func (s *CRMService) MoveTicketToStep(ctx context.Context, companyID, ticketID, stepID string) (*model.Ticket, error) {
	ctx = scoped(ctx, companyID)

	if stepID == "" {
		return nil, apperrors.NewFatal(apperrors.ErrValidation, "funnelStepId is required")
	}

	if _, err := s.ticketRepo.FindByID(ctx, ticketID); err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketByID", ticketID)
	}

	if _, err := s.funnelRepo.FindStepForCompany(ctx, stepID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewFatal(
				fmt.Errorf("%w: funnel step %s does not belong to company", apperrors.ErrValidation, stepID),
				"move ticket %s", ticketID)
		}
		return nil, handleRepositoryError(ctx, err, "FindStepForCompany", stepID)
	}

	if err := s.ticketRepo.UpdateStep(ctx, ticketID, stepID); err != nil {
		return nil, handleRepositoryError(ctx, err, "UpdateTicketStep", ticketID)
	}

	refreshed, err := s.ticketRepo.FindWithRelations(ctx, ticketID)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketWithRelations", ticketID)
	}

	s.emit(companyID, model.EventTicketMoved, model.TicketMovedData{TicketID: ticketID, FunnelStepID: stepID})
	s.emit(companyID, model.EventTicketUpdated, refreshed)

	logger.FromContext(ctx).Info("Ticket moved",
		zap.String("ticket_id", ticketID),
		zap.String("funnel_step_id", stepID))
	return refreshed, nil
}

// AssignTicket sets or clears the assignee. A non-nil user must belong to the tenant.
func (s *CRMService) AssignTicket(ctx context.Context, companyID, ticketID string, userID *string) (*model.Ticket, error) {
	ctx = scoped(ctx, companyID)

	if _, err := s.ticketRepo.FindByID(ctx, ticketID); err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketByID", ticketID)
	}

	if userID != nil {
		if _, err := s.userRepo.FindByID(ctx, *userID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewFatal(
					fmt.Errorf("%w: user %s does not belong to company", apperrors.ErrValidation, *userID),
					"assign ticket %s", ticketID)
			}
			return nil, handleRepositoryError(ctx, err, "FindUserByID", *userID)
		}
	}

	if err := s.ticketRepo.UpdateAssignee(ctx, ticketID, userID); err != nil {
		return nil, handleRepositoryError(ctx, err, "UpdateTicketAssignee", ticketID)
	}

	refreshed, err := s.ticketRepo.FindWithRelations(ctx, ticketID)
	if err != nil {
		return nil, handleRepositoryError(ctx, err, "FindTicketWithRelations", ticketID)
	}

	s.emit(companyID, model.EventTicketUpdated, refreshed)
	return refreshed, nil
}

// TouchTicket bumps the ticket's last_message_at.
func (s *CRMService) TouchTicket(ctx context.Context, companyID, ticketID string) error {
	ctx = scoped(ctx, companyID)
	if err := s.ticketRepo.Touch(ctx, ticketID); err != nil {
		return handleRepositoryError(ctx, err, "TouchTicket", ticketID)
	}
	return nil
}
