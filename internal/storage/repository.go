package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// ContactRepo defines contact storage operations. All calls are tenant scoped via ctx.
type ContactRepo interface {
	FindByPhone(ctx context.Context, phone string) (*model.Contact, error)
	CreateIfAbsent(ctx context.Context, contact model.Contact) (*model.Contact, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Contact, error)
}

// ChannelAccountRepo defines channel account storage operations.
// Session lookups run before a tenant is known and are not tenant scoped.
type ChannelAccountRepo interface {
	FindBySession(ctx context.Context, sessionName string) (*model.ChannelAccount, error)
	UpdateStatusBySession(ctx context.Context, sessionName, status string) (int64, error)
}

// FunnelRepo defines funnel read operations
type FunnelRepo interface {
	FindDefaultFirstStep(ctx context.Context) (*model.FunnelStep, error)
	FindStepForCompany(ctx context.Context, stepID string) (*model.FunnelStep, error)
}

// TicketRepo defines ticket storage operations
type TicketRepo interface {
	FindOpen(ctx context.Context, contactID, channelAccountID string) (*model.Ticket, error)
	CreateIfAbsent(ctx context.Context, ticket model.Ticket) (*model.Ticket, error)
	FindByID(ctx context.Context, id string) (*model.Ticket, error)
	FindWithRelations(ctx context.Context, id string) (*model.Ticket, error)
	UpdateStep(ctx context.Context, id, stepID string) error
	UpdateAssignee(ctx context.Context, id string, userID *string) error
	Touch(ctx context.Context, id string) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	CreateIfAbsent(ctx context.Context, message model.Message) (*model.Message, bool, error)
	Create(ctx context.Context, message model.Message) (*model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]model.Message, error)
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
}

// UserRepo defines user read operations
type UserRepo interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ExhaustedDispatchRepo defines exhausted dispatch storage operations
type ExhaustedDispatchRepo interface {
	Save(ctx context.Context, record *model.ExhaustedDispatch) error
}
