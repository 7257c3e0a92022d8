package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

func TestResolveContact_CreatesWithPhoneAsPlaceholderName(t *testing.T) {
	h := newHarness(t)
	phone := "5511999990000"

	h.contacts.On("FindByPhone", forTenant(testCompanyID), phone).Return(nil, notFound("contact")).Once()
	h.contacts.On("CreateIfAbsent", forTenant(testCompanyID), mock.MatchedBy(func(c model.Contact) bool {
		return c.CompanyID == testCompanyID && c.Phone == phone && c.Name == phone && c.ID != ""
	})).Return(&model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: phone, Name: phone}, nil).Once()

	contact, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{})
	require.NoError(t, err)
	assert.Equal(t, phone, contact.Name)
}

func TestResolveContact_CreatesWithPushName(t *testing.T) {
	h := newHarness(t)
	phone := model.FakePhone()

	h.contacts.On("FindByPhone", mock.Anything, phone).Return(nil, notFound("contact")).Once()
	h.contacts.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(c model.Contact) bool {
		return c.Name == "Maria"
	})).Return(&model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: phone, Name: "Maria"}, nil).Once()

	contact, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
}

func TestResolveContact_FillsPlaceholderName(t *testing.T) {
	h := newHarness(t)
	phone := "5511999990000"
	existing := model.NewContact(&model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: phone, Name: phone})

	h.contacts.On("FindByPhone", mock.Anything, phone).Return(existing, nil).Once()
	h.contacts.On("UpdateFields", forTenant(testCompanyID), "ct-1", map[string]interface{}{"name": "Maria"}).
		Return(&model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: phone, Name: "Maria"}, nil).Once()

	contact, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
}

func TestResolveContact_KeepsExistingName(t *testing.T) {
	h := newHarness(t)
	phone := model.FakePhone()
	existing := model.NewContact(&model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: phone, Name: "Maria"})

	h.contacts.On("FindByPhone", mock.Anything, phone).Return(existing, nil).Once()

	contact, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{Name: "Mari"})
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
	h.contacts.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveContact_ConcurrentCreateReturnsWinner(t *testing.T) {
	h := newHarness(t)
	phone := model.FakePhone()
	winner := &model.Contact{ID: "ct-winner", CompanyID: testCompanyID, Phone: phone, Name: "Maria"}

	h.contacts.On("FindByPhone", mock.Anything, phone).Return(nil, notFound("contact")).Once()
	h.contacts.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(winner, nil).Once()

	contact, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "ct-winner", contact.ID)
}

func TestResolveContact_DatabaseErrorIsRetryable(t *testing.T) {
	h := newHarness(t)
	phone := model.FakePhone()

	h.contacts.On("FindByPhone", mock.Anything, phone).
		Return(nil, fmt.Errorf("%w: connection reset", apperrors.ErrDatabase)).Once()

	_, err := h.service.ResolveContact(testCtx(t), testCompanyID, phone, model.ContactHint{})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}
