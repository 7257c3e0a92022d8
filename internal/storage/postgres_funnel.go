package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

var stepOrderAsc = clause.OrderByColumn{Column: clause.Column{Table: "funnel_steps", Name: "order"}}

// FindDefaultFirstStep returns the lowest-order step of the tenant's default funnel.
// A missing default funnel or an empty funnel is a configuration error.
func (r *PostgresRepo) FindDefaultFirstStep(ctx context.Context) (*model.FunnelStep, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var step model.FunnelStep
	operation := func() error {
		var funnel model.Funnel
		err := r.db.WithContext(ctx).
			Where("company_id = ? AND is_default = ?", companyID, true).
			Order("created_at ASC").
			First(&funnel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: company %s has no default funnel", apperrors.ErrConfiguration, companyID)
		}
		if err != nil {
			return checkConstraintViolation(err)
		}

		err = r.db.WithContext(ctx).
			Where("funnel_id = ?", funnel.ID).
			Order(stepOrderAsc).
			First(&step).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: default funnel %s has no steps", apperrors.ErrConfiguration, funnel.ID)
		}
		return checkConstraintViolation(err)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindDefaultFirstStep", operation)
	observer.ObserveDbOperationDuration("find_default_first_step", "funnel", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// FindStepForCompany returns the step only if it belongs to a live funnel of the tenant.
func (r *PostgresRepo) FindStepForCompany(ctx context.Context, stepID string) (*model.FunnelStep, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var step model.FunnelStep
	operation := func() error {
		result := r.db.WithContext(ctx).
			Joins("JOIN funnels ON funnels.id = funnel_steps.funnel_id AND funnels.deleted_at IS NULL").
			Where("funnel_steps.id = ? AND funnels.company_id = ?", stepID, companyID).
			First(&step)
		return checkConstraintViolation(result.Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindStepForCompany", operation)
	observer.ObserveDbOperationDuration("find_step", "funnel_step", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &step, nil
}
