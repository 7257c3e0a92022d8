package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// FindUserByID returns a live user of the tenant.
func (r *PostgresRepo) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	companyID, err := companyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var user model.User
	operation := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&user).Error)
	}

	startTime := utils.Now()
	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindUserByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "user", companyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
