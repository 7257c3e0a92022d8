package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/api"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// CRMServiceMock mocks the api.CRMService interface
type CRMServiceMock struct {
	mock.Mock
}

var _ api.CRMService = (*CRMServiceMock)(nil)

func (m *CRMServiceMock) CreateOutboundMessage(ctx context.Context, companyID, ticketID string, out model.OutboundMessage) (*model.Message, error) {
	args := m.Called(ctx, companyID, ticketID, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *CRMServiceMock) ListTicketMessages(ctx context.Context, companyID, ticketID string) ([]model.Message, error) {
	args := m.Called(ctx, companyID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *CRMServiceMock) MarkAsRead(ctx context.Context, companyID, messageID string) error {
	args := m.Called(ctx, companyID, messageID)
	return args.Error(0)
}

func (m *CRMServiceMock) MoveTicketToStep(ctx context.Context, companyID, ticketID, stepID string) (*model.Ticket, error) {
	args := m.Called(ctx, companyID, ticketID, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *CRMServiceMock) AssignTicket(ctx context.Context, companyID, ticketID string, userID *string) (*model.Ticket, error) {
	args := m.Called(ctx, companyID, ticketID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}
