package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// FindOpenTicket returns the live ticket for the (contact, channel account) pair of the tenant.
func (r *PostgresRepo) FindOpenTicket(ctx context.Context, contactID, channelAccountID string) (*model.Ticket, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var ticket model.Ticket
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND contact_id = ? AND channel_account_id = ?", companyID, contactID, channelAccountID).
			First(&ticket)
		return checkConstraintViolation(result.Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindOpenTicket", operation)
	observer.ObserveDbOperationDuration("find_open", "ticket", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CreateTicketIfAbsent inserts the ticket unless a live one already covers the same
// conversation, and returns whichever row won.
func (r *PostgresRepo) CreateTicketIfAbsent(ctx context.Context, ticket model.Ticket) (*model.Ticket, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if ticket.CompanyID != companyID {
		return nil, fmt.Errorf("%w: ticket CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, ticket.CompanyID, companyID)
	}

	var inserted bool
	operation := func() error {
		result := r.db.WithContext(ctx).
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "company_id"}, {Name: "contact_id"}, {Name: "channel_account_id"}},
				TargetWhere: notDeleted,
				DoNothing:   true,
			}).
			Create(&ticket)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		inserted = result.RowsAffected > 0
		return nil
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "CreateTicketIfAbsent", operation)
	observer.ObserveDbOperationDuration("create_if_absent", "ticket", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create ticket",
			zap.String("contact_id", ticket.ContactID),
			zap.String("channel_account_id", ticket.ChannelAccountID),
			zap.Error(err))
		return nil, err
	}
	if inserted {
		return &ticket, nil
	}

	logger.FromContext(ctx).Debug("Ticket created concurrently, re-reading",
		zap.String("contact_id", ticket.ContactID),
		zap.String("channel_account_id", ticket.ChannelAccountID))
	return r.FindOpenTicket(ctx, ticket.ContactID, ticket.ChannelAccountID)
}

// FindTicketByID returns a live ticket of the tenant.
func (r *PostgresRepo) FindTicketByID(ctx context.Context, id string) (*model.Ticket, error) {
	return r.findTicket(ctx, id, false)
}

// FindTicketWithRelations returns a live ticket with its contact and channel account loaded.
func (r *PostgresRepo) FindTicketWithRelations(ctx context.Context, id string) (*model.Ticket, error) {
	return r.findTicket(ctx, id, true)
}

func (r *PostgresRepo) findTicket(ctx context.Context, id string, withRelations bool) (*model.Ticket, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var ticket model.Ticket
	operation := func() error {
		query := r.db.WithContext(ctx)
		if withRelations {
			query = query.Preload("Contact").Preload("ChannelAccount")
		}
		result := query.Where("id = ? AND company_id = ?", id, companyID).First(&ticket)
		return checkConstraintViolation(result.Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindTicket", operation)
	observer.ObserveDbOperationDuration("find_by_id", "ticket", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketStep moves the ticket to another funnel step.
func (r *PostgresRepo) UpdateTicketStep(ctx context.Context, id, stepID string) error {
	return r.updateTicket(ctx, id, "update_step", map[string]interface{}{"funnel_step_id": stepID})
}

// UpdateTicketAssignee sets or clears the assigned user.
func (r *PostgresRepo) UpdateTicketAssignee(ctx context.Context, id string, userID *string) error {
	return r.updateTicket(ctx, id, "update_assignee", map[string]interface{}{"assigned_user_id": userID})
}

// TouchTicket bumps last_message_at to now.
func (r *PostgresRepo) TouchTicket(ctx context.Context, id string) error {
	return r.updateTicket(ctx, id, "touch", map[string]interface{}{"last_message_at": utils.Now()})
}

func (r *PostgresRepo) updateTicket(ctx context.Context, id, opName string, fields map[string]interface{}) error {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return err
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Ticket{}).
			Where("id = ? AND company_id = ?", id, companyID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: ticket %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateTicket", operation)
	observer.ObserveDbOperationDuration(opName, "ticket", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to update ticket",
			zap.String("ticket_id", id),
			zap.String("operation", opName),
			zap.Error(err))
	}
	return err
}
