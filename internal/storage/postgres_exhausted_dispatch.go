package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// SaveExhaustedDispatch records a dispatch job that ran out of delivery attempts.
// The job carries its own company id, so no tenant context is required.
func (r *PostgresRepo) SaveExhaustedDispatch(ctx context.Context, record *model.ExhaustedDispatch) error {
	operation := func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(record).Error)
	}

	startTime := utils.Now()
	err := retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "SaveExhaustedDispatch", operation)
	observer.ObserveDbOperationDuration("create", "exhausted_dispatch", record.CompanyID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to save exhausted dispatch",
			zap.String("message_id", record.MessageID),
			zap.Error(err))
	}
	return err
}
