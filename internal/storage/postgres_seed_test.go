package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

func TestTenantSeed_Validate(t *testing.T) {
	company := model.NewCompany(&model.Company{ID: "company-a"})
	funnel := model.NewFunnel("company-a", "Novo")

	tests := []struct {
		name    string
		seed    TenantSeed
		wantErr bool
	}{
		{
			name: "consistent",
			seed: TenantSeed{
				Company:  *company,
				Users:    []model.User{*model.NewUser(&model.User{CompanyID: "company-a"})},
				Accounts: []model.ChannelAccount{*model.NewChannelAccount(&model.ChannelAccount{CompanyID: "company-a"})},
				Funnel:   *funnel,
			},
		},
		{
			name:    "missing company id",
			seed:    TenantSeed{},
			wantErr: true,
		},
		{
			name: "user of another company",
			seed: TenantSeed{
				Company: *company,
				Users:   []model.User{*model.NewUser(&model.User{CompanyID: "company-b"})},
			},
			wantErr: true,
		},
		{
			name: "account of another company",
			seed: TenantSeed{
				Company:  *company,
				Accounts: []model.ChannelAccount{*model.NewChannelAccount(&model.ChannelAccount{CompanyID: "company-b"})},
			},
			wantErr: true,
		},
		{
			name:    "funnel of another company",
			seed:    TenantSeed{Company: *company, Funnel: *model.NewFunnel("company-b", "Novo")},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.seed.validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPostgresRepo_SeedTenant_RejectsInvalid(t *testing.T) {
	repo, _ := newMockRepo(t)
	err := repo.SeedTenant(context.Background(), TenantSeed{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
