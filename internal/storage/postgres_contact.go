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

// FindContactByPhone returns the live contact of the tenant with the given phone.
func (r *PostgresRepo) FindContactByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var contact model.Contact
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND phone = ?", companyID, phone).
			First(&contact)
		return checkConstraintViolation(result.Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindContactByPhone", operation)
	observer.ObserveDbOperationDuration("find_by_phone", "contact", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// CreateContactIfAbsent inserts the contact unless a live one with the same
// (company, phone) exists, and returns whichever row won.
func (r *PostgresRepo) CreateContactIfAbsent(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if contact.CompanyID != companyID {
		return nil, fmt.Errorf("%w: contact CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.CompanyID, companyID)
	}

	var inserted bool
	operation := func() error {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "company_id"}, {Name: "phone"}},
				TargetWhere: notDeleted,
				DoNothing:   true,
			}).
			Create(&contact)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		inserted = result.RowsAffected > 0
		return nil
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "CreateContactIfAbsent", operation)
	observer.ObserveDbOperationDuration("create_if_absent", "contact", companyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create contact", zap.String("phone", contact.Phone), zap.Error(err))
		return nil, err
	}
	if inserted {
		return &contact, nil
	}

	logger.FromContext(ctx).Debug("Contact created concurrently, re-reading", zap.String("phone", contact.Phone))
	return r.FindContactByPhone(ctx, contact.Phone)
}

// UpdateContactFields applies a partial update to a live contact and returns the refreshed row.
func (r *PostgresRepo) UpdateContactFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Contact, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var contact model.Contact
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Contact{}).
			Where("id = ? AND company_id = ?", id, companyID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
		}
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&contact).Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateContactFields", operation)
	observer.ObserveDbOperationDuration("update", "contact", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
