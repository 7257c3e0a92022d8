package handler

import (
	"strings"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// Skip reasons reported by NormalizeMessagesUpsert.
const (
	SkipMissingInstance = "missing_instance"
	SkipMissingKey      = "missing_key"
	SkipFromMe          = "from_me"
	SkipMissingPhone    = "missing_phone"
)

// NormalizeMessagesUpsert extracts the pipeline input from a provider message.
// fallbackInstance is used when the payload itself carries no instance name.
// Own outbound echoes are never forwarded.
func NormalizeMessagesUpsert(p *model.MessagesUpsertPayload, fallbackInstance string) (model.IncomingMessage, string) {
	instance := p.InstanceID()
	if instance == "" {
		instance = fallbackInstance
	}
	if instance == "" {
		return model.IncomingMessage{}, SkipMissingInstance
	}

	if p.Key == nil || p.Key.ID == "" {
		return model.IncomingMessage{}, SkipMissingKey
	}
	if p.Key.FromMe {
		return model.IncomingMessage{}, SkipFromMe
	}

	phone := model.PhoneFromJid(p.Key.RemoteJid)
	if phone == "" {
		return model.IncomingMessage{}, SkipMissingPhone
	}

	return model.IncomingMessage{
		Instance:   instance,
		ExternalID: p.Key.ID,
		Phone:      phone,
		PushName:   strings.TrimSpace(p.PushName),
		Content:    p.Message.Text(),
	}, ""
}
