package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

func (m *ContactRepoMock) FindByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *ContactRepoMock) CreateIfAbsent(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *ContactRepoMock) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Contact, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// --- ChannelAccountRepo Mock ---

// ChannelAccountRepoMock mocks the ChannelAccountRepo interface
type ChannelAccountRepoMock struct {
	mock.Mock
}

func (m *ChannelAccountRepoMock) FindBySession(ctx context.Context, sessionName string) (*model.ChannelAccount, error) {
	args := m.Called(ctx, sessionName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChannelAccount), args.Error(1)
}

func (m *ChannelAccountRepoMock) UpdateStatusBySession(ctx context.Context, sessionName, status string) (int64, error) {
	args := m.Called(ctx, sessionName, status)
	return args.Get(0).(int64), args.Error(1)
}

// --- FunnelRepo Mock ---

// FunnelRepoMock mocks the FunnelRepo interface
type FunnelRepoMock struct {
	mock.Mock
}

func (m *FunnelRepoMock) FindDefaultFirstStep(ctx context.Context) (*model.FunnelStep, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FunnelStep), args.Error(1)
}

func (m *FunnelRepoMock) FindStepForCompany(ctx context.Context, stepID string) (*model.FunnelStep, error) {
	args := m.Called(ctx, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FunnelStep), args.Error(1)
}

// --- TicketRepo Mock ---

// TicketRepoMock mocks the TicketRepo interface
type TicketRepoMock struct {
	mock.Mock
}

func (m *TicketRepoMock) FindOpen(ctx context.Context, contactID, channelAccountID string) (*model.Ticket, error) {
	args := m.Called(ctx, contactID, channelAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepoMock) CreateIfAbsent(ctx context.Context, ticket model.Ticket) (*model.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepoMock) FindByID(ctx context.Context, id string) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepoMock) FindWithRelations(ctx context.Context, id string) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketRepoMock) UpdateStep(ctx context.Context, id, stepID string) error {
	args := m.Called(ctx, id, stepID)
	return args.Error(0)
}

func (m *TicketRepoMock) UpdateAssignee(ctx context.Context, id string, userID *string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *TicketRepoMock) Touch(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

func (m *MessageRepoMock) CreateIfAbsent(ctx context.Context, message model.Message) (*model.Message, bool, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Message), args.Bool(1), args.Error(2)
}

func (m *MessageRepoMock) Create(ctx context.Context, message model.Message) (*model.Message, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepoMock) FindByID(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepoMock) ListByTicket(ctx context.Context, ticketID string) ([]model.Message, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MessageRepoMock) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

// --- UserRepo Mock ---

// UserRepoMock mocks the UserRepo interface
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// --- ExhaustedDispatchRepo Mock ---

// ExhaustedDispatchRepoMock mocks the ExhaustedDispatchRepo interface
type ExhaustedDispatchRepoMock struct {
	mock.Mock
}

func (m *ExhaustedDispatchRepoMock) Save(ctx context.Context, record *model.ExhaustedDispatch) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
