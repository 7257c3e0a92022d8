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

// FindChannelAccountBySession resolves a provider session name to its live
// channel account. Webhooks carry no tenant, so this lookup is not company scoped;
// the oldest live account wins if several companies reuse a session name.
func (r *PostgresRepo) FindChannelAccountBySession(ctx context.Context, sessionName string) (*model.ChannelAccount, error) {
	var account model.ChannelAccount
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("session_name = ?", sessionName).
			Order("created_at ASC").
			First(&account)
		return checkConstraintViolation(result.Error)
	}

	startTime := utils.Now()
	err := retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindChannelAccountBySession", operation)
	observer.ObserveDbOperationDuration("find_by_session", "channel_account", account.CompanyID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateChannelAccountStatusBySession overwrites the status of every live
// account using the session name and returns how many rows changed.
func (r *PostgresRepo) UpdateChannelAccountStatusBySession(ctx context.Context, sessionName, status string) (int64, error) {
	var affected int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.ChannelAccount{}).
			Where("session_name = ?", sessionName).
			Updates(map[string]interface{}{"status": status, "updated_at": utils.Now()})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		affected = result.RowsAffected
		return nil
	}

	startTime := utils.Now()
	err := retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateChannelAccountStatusBySession", operation)
	observer.ObserveDbOperationDuration("update_status", "channel_account", "", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update channel account status",
			zap.String("session_name", sessionName),
			zap.Error(err))
		return 0, err
	}
	return affected, nil
}
