package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// TenantSeed is the bootstrap data of one company.
type TenantSeed struct {
	Company  model.Company
	Users    []model.User
	Accounts []model.ChannelAccount
	Funnel   model.Funnel
}

func (s TenantSeed) validate() error {
	if s.Company.ID == "" {
		return fmt.Errorf("%w: company id is required", apperrors.ErrValidation)
	}
	for _, u := range s.Users {
		if u.CompanyID != s.Company.ID {
			return fmt.Errorf("%w: user %s belongs to %s", apperrors.ErrValidation, u.ID, u.CompanyID)
		}
	}
	for _, a := range s.Accounts {
		if a.CompanyID != s.Company.ID {
			return fmt.Errorf("%w: channel account %s belongs to %s", apperrors.ErrValidation, a.SessionName, a.CompanyID)
		}
	}
	if s.Funnel.ID != "" && s.Funnel.CompanyID != s.Company.ID {
		return fmt.Errorf("%w: funnel %s belongs to %s", apperrors.ErrValidation, s.Funnel.ID, s.Funnel.CompanyID)
	}
	return nil
}

// SeedTenant inserts the company and its records in one transaction.
// Rows that already exist are left untouched, so seeding twice is a no-op.
func (r *PostgresRepo) SeedTenant(ctx context.Context, seed TenantSeed) error {
	if err := seed.validate(); err != nil {
		return err
	}

	insert := func(tx *gorm.DB, value interface{}) error {
		return checkConstraintViolation(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(value).Error)
	}

	operation := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := insert(tx, &seed.Company); err != nil {
				return err
			}
			if len(seed.Users) > 0 {
				if err := insert(tx, &seed.Users); err != nil {
					return err
				}
			}
			if len(seed.Accounts) > 0 {
				if err := insert(tx, &seed.Accounts); err != nil {
					return err
				}
			}
			if seed.Funnel.ID != "" {
				if err := insert(tx, &seed.Funnel); err != nil {
					return err
				}
			}
			return nil
		})
	}

	startTime := utils.Now()
	err := retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "SeedTenant", operation)
	observer.ObserveDbOperationDuration("seed", "company", seed.Company.ID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to seed tenant", zap.String("company_id", seed.Company.ID), zap.Error(err))
		return err
	}
	return nil
}
