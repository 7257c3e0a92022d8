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

func TestHandleIncoming_NewConversation(t *testing.T) {
	h := newHarness(t)
	account := model.NewChannelAccount(&model.ChannelAccount{ID: "ca-1", CompanyID: testCompanyID, SessionName: "Sessao_01"})
	step := &model.FunnelStep{ID: "step-1", Order: 1}
	contact := &model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: "5511999", Name: "Maria"}
	ticket := &model.Ticket{ID: "tk-1", CompanyID: testCompanyID, ContactID: "ct-1", ChannelAccountID: "ca-1", FunnelStepID: "step-1"}

	h.accounts.On("FindBySession", mock.Anything, "Sessao_01").Return(account, nil).Once()
	h.contacts.On("FindByPhone", forTenant(testCompanyID), "5511999").Return(nil, notFound("contact")).Once()
	h.contacts.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(c model.Contact) bool {
		return c.Name == "Maria" && c.Phone == "5511999"
	})).Return(contact, nil).Once()
	h.tickets.On("FindOpen", mock.Anything, "ct-1", "ca-1").Return(nil, notFound("ticket")).Once()
	h.funnels.On("FindDefaultFirstStep", mock.Anything).Return(step, nil).Once()
	h.tickets.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(tk model.Ticket) bool {
		return tk.FunnelStepID == "step-1"
	})).Return(ticket, nil).Once()
	h.messages.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(m model.Message) bool {
		return m.Content == "Oi" && *m.ExternalID == "X1" && m.Status == model.MessageStatusReceived
	})).Return(&model.Message{ID: "msg-1", TicketID: "tk-1", Content: "Oi", Status: model.MessageStatusReceived}, true, nil).Once()
	h.tickets.On("Touch", mock.Anything, "tk-1").Return(nil).Once()

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{
		Instance:   "Sessao_01",
		ExternalID: "X1",
		Phone:      "5511999",
		PushName:   "Maria",
		Content:    "Oi",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.Equal(t, []model.RealtimeEventType{model.EventMessageCreated, model.EventTicketUpdated}, h.notifier.types())
	for _, evt := range h.notifier.events {
		assert.Equal(t, testCompanyID, evt.CompanyID)
	}
}

func TestHandleIncoming_RedeliveryIsDeduplicated(t *testing.T) {
	h := newHarness(t)
	account := model.NewChannelAccount(&model.ChannelAccount{ID: "ca-1", CompanyID: testCompanyID, SessionName: "Sessao_01"})
	contact := &model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: "5511999", Name: "Maria"}
	ticket := &model.Ticket{ID: "tk-1", CompanyID: testCompanyID, FunnelStepID: "step-1"}
	existing := &model.Message{ID: "msg-1", TicketID: "tk-1", ExternalID: model.StringPtr("X1")}

	h.accounts.On("FindBySession", mock.Anything, "Sessao_01").Return(account, nil).Once()
	h.contacts.On("FindByPhone", mock.Anything, "5511999").Return(contact, nil).Once()
	h.tickets.On("FindOpen", mock.Anything, "ct-1", "ca-1").Return(ticket, nil).Once()
	h.messages.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(existing, false, nil).Once()

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{
		Instance:   "Sessao_01",
		ExternalID: "X1",
		Phone:      "5511999",
		PushName:   "Mari",
		Content:    "Oi",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, action)
	h.contacts.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	h.tickets.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything)
	assert.Empty(t, h.notifier.types())
}

func TestHandleIncoming_UnknownSessionDropped(t *testing.T) {
	h := newHarness(t)
	h.accounts.On("FindBySession", mock.Anything, "ghost").Return(nil, notFound("channel account")).Once()

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{
		Instance: "ghost", ExternalID: "X1", Phone: "5511999", Content: "Oi",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionDropped, action)
	h.contacts.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
}

func TestHandleIncoming_EmptyContentDropped(t *testing.T) {
	h := newHarness(t)
	account := model.NewChannelAccount(&model.ChannelAccount{ID: "ca-1", CompanyID: testCompanyID})
	h.accounts.On("FindBySession", mock.Anything, "Sessao_01").Return(account, nil).Once()

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{
		Instance: "Sessao_01", ExternalID: "X1", Phone: "5511999", Content: "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionDropped, action)
	h.contacts.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
}

func TestHandleIncoming_MalformedDropped(t *testing.T) {
	h := newHarness(t)

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{Instance: "Sessao_01", Content: "Oi"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, ActionDropped, action)
}

func TestHandleIncoming_MissingDefaultFunnelFails(t *testing.T) {
	h := newHarness(t)
	account := model.NewChannelAccount(&model.ChannelAccount{ID: "ca-1", CompanyID: testCompanyID})
	contact := &model.Contact{ID: "ct-1", CompanyID: testCompanyID, Phone: "5511999", Name: "Maria"}

	h.accounts.On("FindBySession", mock.Anything, "Sessao_01").Return(account, nil).Once()
	h.contacts.On("FindByPhone", mock.Anything, "5511999").Return(contact, nil).Once()
	h.tickets.On("FindOpen", mock.Anything, "ct-1", "ca-1").Return(nil, notFound("ticket")).Once()
	h.funnels.On("FindDefaultFirstStep", mock.Anything).
		Return(nil, fmt.Errorf("%w: no default funnel", apperrors.ErrConfiguration)).Once()

	action, err := h.service.HandleIncoming(testCtx(t), model.IncomingMessage{
		Instance: "Sessao_01", ExternalID: "X1", Phone: "5511999", PushName: "Maria", Content: "Oi",
	})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Equal(t, ActionFailed, action)
	h.messages.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
}

func TestHandleConnectionUpdate(t *testing.T) {
	t.Run("normalizes and overwrites", func(t *testing.T) {
		h := newHarness(t)
		h.accounts.On("UpdateStatusBySession", mock.Anything, "Sessao_01", "OPEN").Return(int64(1), nil).Once()

		assert.NoError(t, h.service.HandleConnectionUpdate(testCtx(t), "Sessao_01", "open"))
	})

	t.Run("unknown session is a no-op", func(t *testing.T) {
		h := newHarness(t)
		h.accounts.On("UpdateStatusBySession", mock.Anything, "ghost", "CLOSE").Return(int64(0), nil).Once()

		assert.NoError(t, h.service.HandleConnectionUpdate(testCtx(t), "ghost", "close"))
	})

	t.Run("missing state", func(t *testing.T) {
		h := newHarness(t)
		err := h.service.HandleConnectionUpdate(testCtx(t), "Sessao_01", " ")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("database failure is retryable", func(t *testing.T) {
		h := newHarness(t)
		h.accounts.On("UpdateStatusBySession", mock.Anything, "Sessao_01", "OPEN").
			Return(int64(0), fmt.Errorf("%w: conn", apperrors.ErrDatabase)).Once()

		err := h.service.HandleConnectionUpdate(testCtx(t), "Sessao_01", "open")
		assert.True(t, apperrors.IsRetryable(err))
	})
}
