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

// CreateMessageIfAbsent inserts a provider-sourced message keyed by (company, external id).
// When the key already exists the stored row is returned with created=false.
func (r *PostgresRepo) CreateMessageIfAbsent(ctx context.Context, message model.Message) (*model.Message, bool, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, false, err
	}
	if message.CompanyID != companyID {
		return nil, false, fmt.Errorf("%w: message CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.CompanyID, companyID)
	}
	if message.ExternalID == nil || *message.ExternalID == "" {
		return nil, false, fmt.Errorf("%w: external id is required for idempotent insert", apperrors.ErrBadRequest)
	}

	var inserted bool
	operation := func() error {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "company_id"}, {Name: "external_id"}},
				DoNothing: true,
			}).
			Create(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		inserted = result.RowsAffected > 0
		return nil
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "CreateMessageIfAbsent", operation)
	observer.ObserveDbOperationDuration("create_if_absent", "message", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create message",
			zap.String("external_id", *message.ExternalID),
			zap.Error(err))
		return nil, false, err
	}
	if inserted {
		return &message, true, nil
	}

	// The unique key ignores deleted_at, so the existing row may be soft-deleted.
	var existing model.Message
	readBack := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Unscoped().
			Where("company_id = ? AND external_id = ?", companyID, *message.ExternalID).
			First(&existing).Error)
	}
	if err := retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "ReadDuplicateMessage", readBack); err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// CreateMessage inserts a message without a dedup key.
func (r *PostgresRepo) CreateMessage(ctx context.Context, message model.Message) (*model.Message, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if message.CompanyID != companyID {
		return nil, fmt.Errorf("%w: message CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.CompanyID, companyID)
	}

	operation := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(&message).Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "CreateMessage", operation)
	observer.ObserveDbOperationDuration("create", "message", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create message", zap.String("ticket_id", message.TicketID), zap.Error(err))
		return nil, err
	}
	return &message, nil
}

// FindMessageByID returns a live message of the tenant.
func (r *PostgresRepo) FindMessageByID(ctx context.Context, id string) (*model.Message, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var message model.Message
	operation := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&message).Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindMessageByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "message", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListMessagesByTicket returns the live messages of a ticket, oldest first.
func (r *PostgresRepo) ListMessagesByTicket(ctx context.Context, ticketID string) ([]model.Message, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var messages []model.Message
	operation := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("company_id = ? AND ticket_id = ?", companyID, ticketID).
			Order("created_at ASC").
			Find(&messages).Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "ListMessagesByTicket", operation)
	observer.ObserveDbOperationDuration("list_by_ticket", "message", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateMessageStatus sets the status of a live message. It reports false when
// no such message exists.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, id, status string) (bool, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return false, err
	}
	if !model.IsValidMessageStatus(status) {
		return false, fmt.Errorf("%w: unknown message status %q", apperrors.ErrValidation, status)
	}

	var affected int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Message{}).
			Where("id = ? AND company_id = ?", id, companyID).
			Update("status", status)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		affected = result.RowsAffected
		return nil
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateMessageStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "message", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update message status",
			zap.String("message_id", id),
			zap.String("status", status),
			zap.Error(err))
		return false, err
	}
	return affected > 0, nil
}
