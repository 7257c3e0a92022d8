package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

var contactColumns = []string{"id", "company_id", "phone", "name", "profile_pic_url"}

func TestPostgresRepo_FindContactByPhone_Found(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := tenantCtx()

	mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE .*company_id = \$1 AND phone = \$2.*deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows(contactColumns).AddRow("contact-1", testCompanyID, "5511999", "Maria", ""))

	contact, err := repo.FindContactByPhone(ctx, "5511999")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", contact.ID)
	assert.Equal(t, "Maria", contact.Name)
}

func TestPostgresRepo_FindContactByPhone_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "contacts"`).WillReturnRows(sqlmock.NewRows(contactColumns))

	contact, err := repo.FindContactByPhone(tenantCtx(), "5511999")
	assert.Nil(t, contact)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresRepo_FindContactByPhone_NoTenant(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.FindContactByPhone(context.Background(), "5511999")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPostgresRepo_CreateContactIfAbsent_Inserted(t *testing.T) {
	repo, mock := newMockRepo(t)
	contact := model.NewContact(&model.Contact{CompanyID: testCompanyID, Phone: "5511999", Name: "5511999"})

	mock.ExpectExec(`INSERT INTO "contacts" .*ON CONFLICT \("company_id","phone"\).*WHERE deleted_at IS NULL DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.CreateContactIfAbsent(tenantCtx(), *contact)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, created.ID)
}

func TestPostgresRepo_CreateContactIfAbsent_ConflictReReads(t *testing.T) {
	repo, mock := newMockRepo(t)
	contact := model.NewContact(&model.Contact{CompanyID: testCompanyID, Phone: "5511999", Name: "5511999"})

	mock.ExpectExec(`INSERT INTO "contacts"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE .*company_id = \$1 AND phone = \$2`).
		WillReturnRows(sqlmock.NewRows(contactColumns).AddRow("winner", testCompanyID, "5511999", "Maria", ""))

	got, err := repo.CreateContactIfAbsent(tenantCtx(), *contact)
	require.NoError(t, err)
	assert.Equal(t, "winner", got.ID)
	assert.Equal(t, "Maria", got.Name)
}

func TestPostgresRepo_CreateContactIfAbsent_TenantMismatch(t *testing.T) {
	repo, _ := newMockRepo(t)
	contact := model.NewContact(&model.Contact{CompanyID: "other-company"})

	_, err := repo.CreateContactIfAbsent(tenantCtx(), *contact)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPostgresRepo_CreateContactIfAbsent_DatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)
	contact := model.NewContact(&model.Contact{CompanyID: testCompanyID})

	mock.ExpectExec(`INSERT INTO "contacts"`).WillReturnError(errors.New("syntax error"))

	_, err := repo.CreateContactIfAbsent(tenantCtx(), *contact)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestPostgresRepo_UpdateContactFields(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE "contacts" SET .*"name"=\$\d.*WHERE .*id = \$\d+ AND company_id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE .*id = \$1 AND company_id = \$2`).
			WillReturnRows(sqlmock.NewRows(contactColumns).AddRow("contact-1", testCompanyID, "5511999", "Maria", ""))

		contact, err := repo.UpdateContactFields(tenantCtx(), "contact-1", map[string]interface{}{"name": "Maria"})
		require.NoError(t, err)
		assert.Equal(t, "Maria", contact.Name)
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE "contacts"`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.UpdateContactFields(tenantCtx(), "missing", map[string]interface{}{"name": "Maria"})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
