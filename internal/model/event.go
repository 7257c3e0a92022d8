package model

import (
	"strings"
)

// WebhookEventType is a provider webhook event name.
type WebhookEventType string

const (
	WebhookMessagesUpsert   WebhookEventType = "messages.upsert"
	WebhookConnectionUpdate WebhookEventType = "connection.update"
)

// NormalizeWebhookEvent maps provider spellings ("MESSAGES_UPSERT", "messages-upsert",
// "messages.upsert") onto a known event type.
func NormalizeWebhookEvent(input string) (WebhookEventType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("_", ".", "-", ".").Replace(normalized)

	switch WebhookEventType(normalized) {
	case WebhookMessagesUpsert, WebhookConnectionUpdate:
		return WebhookEventType(normalized), true
	default:
		return "", false
	}
}

// RealtimeEventType names an event pushed to a tenant room.
type RealtimeEventType string

const (
	EventMessageCreated RealtimeEventType = "message.created"
	EventTicketUpdated  RealtimeEventType = "ticket.updated"
	EventTicketMoved    RealtimeEventType = "ticket.moved"
	EventUserOnline     RealtimeEventType = "user.online"
)

// RealtimeEvent is the envelope written to websocket clients.
type RealtimeEvent struct {
	CompanyID string            `json:"-"`
	Type      RealtimeEventType `json:"type"`
	Data      interface{}       `json:"data"`
}

// TicketMovedData is the payload of ticket.moved.
type TicketMovedData struct {
	TicketID     string `json:"ticketId"`
	FunnelStepID string `json:"funnelStepId"`
}

// TicketUpdatedData is the minimal ticket.updated payload used when the full ticket is not at hand.
type TicketUpdatedData struct {
	TicketID string `json:"ticketId"`
}

// UserOnlineData is the payload of user.online.
type UserOnlineData struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// CompanyFromSubject returns the last token of a per-tenant subject
// ("v1.dispatch.send.<companyID>").
func CompanyFromSubject(subject string) string {
	idx := strings.LastIndex(subject, ".")
	if idx < 0 || idx == len(subject)-1 {
		return ""
	}
	return subject[idx+1:]
}
