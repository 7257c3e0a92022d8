package storage

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

var messageColumns = []string{"id", "company_id", "ticket_id", "external_id", "content", "from_me", "status"}

func TestPostgresRepo_CreateMessageIfAbsent(t *testing.T) {
	t.Run("New message", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		msg := model.NewMessage(&model.Message{CompanyID: testCompanyID})

		mock.ExpectExec(`INSERT INTO "messages" .*ON CONFLICT \("company_id","external_id"\) DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, created, err := repo.CreateMessageIfAbsent(tenantCtx(), *msg)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, msg.ID, got.ID)
	})

	t.Run("Duplicate returns stored row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		msg := model.NewMessage(&model.Message{CompanyID: testCompanyID, ExternalID: model.StringPtr("m1"), Content: "Oi de novo"})

		mock.ExpectExec(`INSERT INTO "messages"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT \* FROM "messages" WHERE company_id = \$1 AND external_id = \$2`).
			WillReturnRows(sqlmock.NewRows(messageColumns).AddRow("first-id", testCompanyID, "ticket-1", "m1", "Oi", false, model.MessageStatusReceived))

		got, created, err := repo.CreateMessageIfAbsent(tenantCtx(), *msg)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "first-id", got.ID)
		assert.Equal(t, "Oi", got.Content)
	})

	t.Run("Missing external id", func(t *testing.T) {
		repo, _ := newMockRepo(t)
		msg := model.NewMessage(&model.Message{CompanyID: testCompanyID})
		msg.ExternalID = nil

		_, _, err := repo.CreateMessageIfAbsent(tenantCtx(), *msg)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}

func TestPostgresRepo_CreateMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	msg := model.NewMessage(&model.Message{CompanyID: testCompanyID, FromMe: true, Status: model.MessageStatusPending})
	msg.ExternalID = nil

	mock.ExpectExec(`INSERT INTO "messages"`).WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.CreateMessage(tenantCtx(), *msg)
	require.NoError(t, err)
	assert.Equal(t, model.MessageStatusPending, got.Status)
}

func TestPostgresRepo_ListMessagesByTicket(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE .*company_id = \$1 AND ticket_id = \$2.*ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m-1", testCompanyID, "ticket-1", "e1", "Oi", false, model.MessageStatusReceived).
			AddRow("m-2", testCompanyID, "ticket-1", nil, "Olá Maria", true, model.MessageStatusSent))

	messages, err := repo.ListMessagesByTicket(tenantCtx(), "ticket-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m-1", messages[0].ID)
	assert.Nil(t, messages[1].ExternalID)
}

func TestPostgresRepo_UpdateMessageStatus(t *testing.T) {
	t.Run("Updated", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE "messages" SET "status"=\$1`).WillReturnResult(sqlmock.NewResult(0, 1))

		found, err := repo.UpdateMessageStatus(tenantCtx(), "m-1", model.MessageStatusSent)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Missing message", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE "messages"`).WillReturnResult(sqlmock.NewResult(0, 0))

		found, err := repo.UpdateMessageStatus(tenantCtx(), "gone", model.MessageStatusFailed)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Unknown status", func(t *testing.T) {
		repo, _ := newMockRepo(t)

		_, err := repo.UpdateMessageStatus(tenantCtx(), "m-1", "DELIVERED")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestPostgresRepo_FindMessageByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "messages"`).WillReturnRows(sqlmock.NewRows(messageColumns))

	_, err := repo.FindMessageByID(tenantCtx(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
