package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

func (a *ContactRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.Contact, error) {
	return a.postgres.FindContactByPhone(ctx, phone)
}

func (a *ContactRepoAdapter) CreateIfAbsent(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	return a.postgres.CreateContactIfAbsent(ctx, contact)
}

func (a *ContactRepoAdapter) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Contact, error) {
	return a.postgres.UpdateContactFields(ctx, id, fields)
}

// ChannelAccountRepoAdapter adapts the PostgresRepo to the ChannelAccountRepo interface
type ChannelAccountRepoAdapter struct {
	postgres *PostgresRepo
}

// NewChannelAccountRepoAdapter creates a new channel account repository adapter
func NewChannelAccountRepoAdapter(postgres *PostgresRepo) ChannelAccountRepo {
	return &ChannelAccountRepoAdapter{postgres: postgres}
}

func (a *ChannelAccountRepoAdapter) FindBySession(ctx context.Context, sessionName string) (*model.ChannelAccount, error) {
	return a.postgres.FindChannelAccountBySession(ctx, sessionName)
}

func (a *ChannelAccountRepoAdapter) UpdateStatusBySession(ctx context.Context, sessionName, status string) (int64, error) {
	return a.postgres.UpdateChannelAccountStatusBySession(ctx, sessionName, status)
}

// FunnelRepoAdapter adapts the PostgresRepo to the FunnelRepo interface
type FunnelRepoAdapter struct {
	postgres *PostgresRepo
}

// NewFunnelRepoAdapter creates a new funnel repository adapter
func NewFunnelRepoAdapter(postgres *PostgresRepo) FunnelRepo {
	return &FunnelRepoAdapter{postgres: postgres}
}

func (a *FunnelRepoAdapter) FindDefaultFirstStep(ctx context.Context) (*model.FunnelStep, error) {
	return a.postgres.FindDefaultFirstStep(ctx)
}

func (a *FunnelRepoAdapter) FindStepForCompany(ctx context.Context, stepID string) (*model.FunnelStep, error) {
	return a.postgres.FindStepForCompany(ctx, stepID)
}

// TicketRepoAdapter adapts the PostgresRepo to the TicketRepo interface
type TicketRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTicketRepoAdapter creates a new ticket repository adapter
func NewTicketRepoAdapter(postgres *PostgresRepo) TicketRepo {
	return &TicketRepoAdapter{postgres: postgres}
}

func (a *TicketRepoAdapter) FindOpen(ctx context.Context, contactID, channelAccountID string) (*model.Ticket, error) {
	return a.postgres.FindOpenTicket(ctx, contactID, channelAccountID)
}

func (a *TicketRepoAdapter) CreateIfAbsent(ctx context.Context, ticket model.Ticket) (*model.Ticket, error) {
	return a.postgres.CreateTicketIfAbsent(ctx, ticket)
}

func (a *TicketRepoAdapter) FindByID(ctx context.Context, id string) (*model.Ticket, error) {
	return a.postgres.FindTicketByID(ctx, id)
}

func (a *TicketRepoAdapter) FindWithRelations(ctx context.Context, id string) (*model.Ticket, error) {
	return a.postgres.FindTicketWithRelations(ctx, id)
}

func (a *TicketRepoAdapter) UpdateStep(ctx context.Context, id, stepID string) error {
	return a.postgres.UpdateTicketStep(ctx, id, stepID)
}

func (a *TicketRepoAdapter) UpdateAssignee(ctx context.Context, id string, userID *string) error {
	return a.postgres.UpdateTicketAssignee(ctx, id, userID)
}

func (a *TicketRepoAdapter) Touch(ctx context.Context, id string) error {
	return a.postgres.TouchTicket(ctx, id)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

func (a *MessageRepoAdapter) CreateIfAbsent(ctx context.Context, message model.Message) (*model.Message, bool, error) {
	return a.postgres.CreateMessageIfAbsent(ctx, message)
}

func (a *MessageRepoAdapter) Create(ctx context.Context, message model.Message) (*model.Message, error) {
	return a.postgres.CreateMessage(ctx, message)
}

func (a *MessageRepoAdapter) FindByID(ctx context.Context, id string) (*model.Message, error) {
	return a.postgres.FindMessageByID(ctx, id)
}

func (a *MessageRepoAdapter) ListByTicket(ctx context.Context, ticketID string) ([]model.Message, error) {
	return a.postgres.ListMessagesByTicket(ctx, ticketID)
}

func (a *MessageRepoAdapter) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	return a.postgres.UpdateMessageStatus(ctx, id, status)
}

// UserRepoAdapter adapts the PostgresRepo to the UserRepo interface
type UserRepoAdapter struct {
	postgres *PostgresRepo
}

// NewUserRepoAdapter creates a new user repository adapter
func NewUserRepoAdapter(postgres *PostgresRepo) UserRepo {
	return &UserRepoAdapter{postgres: postgres}
}

func (a *UserRepoAdapter) FindByID(ctx context.Context, id string) (*model.User, error) {
	return a.postgres.FindUserByID(ctx, id)
}

// ExhaustedDispatchRepoAdapter adapts the PostgresRepo to the ExhaustedDispatchRepo interface
type ExhaustedDispatchRepoAdapter struct {
	postgres *PostgresRepo
}

// NewExhaustedDispatchRepoAdapter creates a new exhausted dispatch repository adapter
func NewExhaustedDispatchRepoAdapter(postgres *PostgresRepo) ExhaustedDispatchRepo {
	return &ExhaustedDispatchRepoAdapter{postgres: postgres}
}

func (a *ExhaustedDispatchRepoAdapter) Save(ctx context.Context, record *model.ExhaustedDispatch) error {
	return a.postgres.SaveExhaustedDispatch(ctx, record)
}
