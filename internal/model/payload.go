package model

import (
	"encoding/json"
	"strings"
	"time"
)

// --- Provider webhook payloads --- //

// WebhookMessageKey identifies a provider message.
type WebhookMessageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type captioned struct {
	Caption string `json:"caption,omitempty"`
	URL     string `json:"url,omitempty"`
}

// WebhookMessageContent holds the message variants text may be extracted from.
type WebhookMessageContent struct {
	Conversation        *string `json:"conversation,omitempty"`
	ExtendedTextMessage *struct {
		Text string `json:"text,omitempty"`
	} `json:"extendedTextMessage,omitempty"`
	ImageMessage    *captioned `json:"imageMessage,omitempty"`
	VideoMessage    *captioned `json:"videoMessage,omitempty"`
	DocumentMessage *captioned `json:"documentMessage,omitempty"`
}

// Text applies the extraction precedence conversation > extended text >
// image caption > video caption > document caption.
func (m *WebhookMessageContent) Text() string {
	if m == nil {
		return ""
	}
	switch {
	case m.Conversation != nil:
		return *m.Conversation
	case m.ExtendedTextMessage != nil && m.ExtendedTextMessage.Text != "":
		return m.ExtendedTextMessage.Text
	case m.ImageMessage != nil && m.ImageMessage.Caption != "":
		return m.ImageMessage.Caption
	case m.VideoMessage != nil && m.VideoMessage.Caption != "":
		return m.VideoMessage.Caption
	case m.DocumentMessage != nil && m.DocumentMessage.Caption != "":
		return m.DocumentMessage.Caption
	}
	return ""
}

// MessagesUpsertPayload is the per-event messages-upsert body.
type MessagesUpsertPayload struct {
	Instance     string                 `json:"instance,omitempty"`
	InstanceName string                 `json:"instanceName,omitempty"`
	Key          *WebhookMessageKey     `json:"key,omitempty"`
	PushName     string                 `json:"pushName,omitempty"`
	Message      *WebhookMessageContent `json:"message,omitempty"`
	MessageType  string                 `json:"messageType,omitempty"`
}

// InstanceID returns the session name, preferring "instance".
func (p *MessagesUpsertPayload) InstanceID() string {
	if p.Instance != "" {
		return p.Instance
	}
	return p.InstanceName
}

// ConnectionUpdatePayload is the per-event connection-update body.
type ConnectionUpdatePayload struct {
	Instance     string `json:"instance,omitempty"`
	InstanceName string `json:"instanceName,omitempty"`
	State        string `json:"state,omitempty"`
}

func (p *ConnectionUpdatePayload) InstanceID() string {
	if p.Instance != "" {
		return p.Instance
	}
	return p.InstanceName
}

// GlobalWebhookPayload is the combined-mode body: {event, instance, data}.
type GlobalWebhookPayload struct {
	Event        string          `json:"event"`
	Instance     string          `json:"instance,omitempty"`
	InstanceName string          `json:"instanceName,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func (p *GlobalWebhookPayload) InstanceID() string {
	if p.Instance != "" {
		return p.Instance
	}
	return p.InstanceName
}

// IncomingMessage is a normalised inbound provider message.
type IncomingMessage struct {
	Instance   string `json:"instance" validate:"required"`
	ExternalID string `json:"externalId" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	PushName   string `json:"pushName,omitempty"`
	Content    string `json:"content"`
}

// PhoneFromJid returns the user part of a WhatsApp address ("5511999@s.whatsapp.net" -> "5511999").
func PhoneFromJid(jid string) string {
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}

// --- Dispatch --- //

// DispatchJob is the durable outbound send job.
type DispatchJob struct {
	MessageID   string `json:"messageId" validate:"required"`
	CompanyID   string `json:"companyId" validate:"required"`
	SessionName string `json:"sessionName" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Content     string `json:"content"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	MediaType   string `json:"mediaType,omitempty"`
}

// --- API request bodies --- //

// MoveTicketRequest moves a ticket to another funnel step.
type MoveTicketRequest struct {
	FunnelStepID string `json:"funnelStepId" validate:"required"`
}

// AssignTicketRequest sets or clears the assignee.
type AssignTicketRequest struct {
	UserID *string `json:"userId"`
}

// WebhookMetadata describes one webhook delivery as seen by the HTTP boundary.
type WebhookMetadata struct {
	Event      string
	Instance   string
	RequestID  string
	ReceivedAt time.Time
}
