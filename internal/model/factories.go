package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// FakePhone returns a Brazilian mobile number in provider digit format.
func FakePhone() string {
	return "55" + gofakeit.Numerify("119########")
}

// NewCompany creates a Company with fake data. Non-empty override fields win.
func NewCompany(overrideDefaults ...*Company) *Company {
	base := &Company{
		ID:   uuid.NewString(),
		Slug: gofakeit.Username(),
		Name: gofakeit.Company(),
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Slug != "" {
			base.Slug = ovr.Slug
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
	}
	return base
}

// NewUser creates a User with fake data.
func NewUser(overrideDefaults ...*User) *User {
	base := &User{
		ID:        uuid.NewString(),
		CompanyID: uuid.NewString(),
		Name:      gofakeit.Name(),
		Email:     gofakeit.Email(),
		Role:      UserRoleAgent,
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Email != "" {
			base.Email = ovr.Email
		}
		if ovr.Role != "" {
			base.Role = ovr.Role
		}
	}
	return base
}

// NewContact creates a Contact with fake data. Name is overridden even when empty.
func NewContact(overrideDefaults ...*Contact) *Contact {
	now := utils.Now()
	base := &Contact{
		ID:            uuid.NewString(),
		CompanyID:     uuid.NewString(),
		Phone:         FakePhone(),
		Name:          gofakeit.Name(),
		ProfilePicURL: gofakeit.URL(),
		CreatedAt:     now.Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:     now,
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		// Allow overriding with empty string by direct assignment
		base.Name = ovr.Name
		base.ProfilePicURL = ovr.ProfilePicURL
	}
	return base
}

// NewChannelAccount creates a ChannelAccount with fake data.
func NewChannelAccount(overrideDefaults ...*ChannelAccount) *ChannelAccount {
	base := &ChannelAccount{
		ID:          uuid.NewString(),
		CompanyID:   uuid.NewString(),
		SessionName: "Sessao_" + gofakeit.Numerify("##"),
		Status:      ConnectionConnected,
		PhoneNumber: FakePhone(),
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.SessionName != "" {
			base.SessionName = ovr.SessionName
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.PhoneNumber != "" {
			base.PhoneNumber = ovr.PhoneNumber
		}
	}
	return base
}

// NewFunnel creates a default funnel whose steps are named after stepNames, ordered from 1.
func NewFunnel(companyID string, stepNames ...string) *Funnel {
	funnel := &Funnel{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      "Vendas",
		IsDefault: true,
	}
	for i, name := range stepNames {
		funnel.Steps = append(funnel.Steps, FunnelStep{
			ID:       uuid.NewString(),
			FunnelID: funnel.ID,
			Name:     name,
			Order:    i + 1,
			Color:    gofakeit.HexColor(),
		})
	}
	return funnel
}

// NewTicket creates a Ticket with fake data.
func NewTicket(overrideDefaults ...*Ticket) *Ticket {
	now := utils.Now()
	base := &Ticket{
		ID:               uuid.NewString(),
		CompanyID:        uuid.NewString(),
		ContactID:        uuid.NewString(),
		ChannelAccountID: uuid.NewString(),
		FunnelStepID:     uuid.NewString(),
		LastMessageAt:    now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.ContactID != "" {
			base.ContactID = ovr.ContactID
		}
		if ovr.ChannelAccountID != "" {
			base.ChannelAccountID = ovr.ChannelAccountID
		}
		if ovr.FunnelStepID != "" {
			base.FunnelStepID = ovr.FunnelStepID
		}
		base.AssignedUserID = ovr.AssignedUserID
		base.Contact = ovr.Contact
		base.ChannelAccount = ovr.ChannelAccount
		if !ovr.LastMessageAt.IsZero() {
			base.LastMessageAt = ovr.LastMessageAt
		}
	}
	return base
}

// NewMessage creates an inbound Message with fake data.
func NewMessage(overrideDefaults ...*Message) *Message {
	now := utils.Now()
	externalID := "3EB0" + gofakeit.LetterN(16)
	base := &Message{
		ID:         uuid.NewString(),
		CompanyID:  uuid.NewString(),
		TicketID:   uuid.NewString(),
		ExternalID: &externalID,
		Content:    gofakeit.Sentence(6),
		Status:     MessageStatusReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.TicketID != "" {
			base.TicketID = ovr.TicketID
		}
		if ovr.ExternalID != nil {
			base.ExternalID = ovr.ExternalID
		}
		if ovr.Content != "" {
			base.Content = ovr.Content
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		base.FromMe = ovr.FromMe
		base.MediaURL = ovr.MediaURL
		base.MediaType = ovr.MediaType
		base.SenderID = ovr.SenderID
	}
	return base
}

// NewDispatchJob creates a DispatchJob with fake data.
func NewDispatchJob(overrideDefaults ...*DispatchJob) *DispatchJob {
	base := &DispatchJob{
		MessageID:   uuid.NewString(),
		CompanyID:   uuid.NewString(),
		SessionName: "Sessao_01",
		Phone:       FakePhone(),
		Content:     gofakeit.Sentence(5),
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.MessageID != "" {
			base.MessageID = ovr.MessageID
		}
		if ovr.CompanyID != "" {
			base.CompanyID = ovr.CompanyID
		}
		if ovr.SessionName != "" {
			base.SessionName = ovr.SessionName
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		if ovr.Content != "" {
			base.Content = ovr.Content
		}
		base.MediaURL = ovr.MediaURL
		base.MediaType = ovr.MediaType
	}
	return base
}

// NewMessagesUpsertPayload creates a provider messages-upsert body with fake data.
func NewMessagesUpsertPayload(instance string) *MessagesUpsertPayload {
	text := gofakeit.Sentence(4)
	return &MessagesUpsertPayload{
		Instance: instance,
		Key: &WebhookMessageKey{
			RemoteJid: FakePhone() + "@s.whatsapp.net",
			ID:        "3EB0" + gofakeit.LetterN(16),
		},
		PushName:    gofakeit.FirstName(),
		Message:     &WebhookMessageContent{Conversation: &text},
		MessageType: "conversation",
	}
}

// RandomJSONB generates random JSON data for testing.
func RandomJSONB() datatypes.JSON {
	return datatypes.JSON(utils.MustMarshalJSON(map[string]interface{}{
		"key": gofakeit.Word(),
		"num": gofakeit.Number(1, 100),
	}))
}
