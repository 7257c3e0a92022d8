package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Message statuses. Outbound: PENDING -> SENT | FAILED. Inbound: RECEIVED -> READ.
const (
	MessageStatusPending  = "PENDING"
	MessageStatusSent     = "SENT"
	MessageStatusFailed   = "FAILED"
	MessageStatusReceived = "RECEIVED"
	MessageStatusRead     = "READ"
)

// Message belongs to exactly one ticket. ExternalID is the provider id and the dedup key.
type Message struct {
	ID         string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID  string         `json:"companyId" gorm:"type:text;not null;uniqueIndex:idx_messages_company_external"`
	TicketID   string         `json:"ticketId" gorm:"type:text;not null;index"`
	ExternalID *string        `json:"externalId,omitempty" gorm:"type:text;uniqueIndex:idx_messages_company_external"`
	Content    string         `json:"content" gorm:"type:text"`
	FromMe     bool           `json:"fromMe" gorm:"default:false"`
	MediaURL   *string        `json:"mediaUrl,omitempty" gorm:"column:media_url;type:text"`
	MediaType  *string        `json:"mediaType,omitempty" gorm:"type:text"`
	Status     string         `json:"status" gorm:"type:text;not null;index"`
	SenderID   *string        `json:"senderId,omitempty" gorm:"type:text"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the base table name for GORM, respecting the Namer.
func (Message) TableName(namer schema.Namer) string {
	return namer.TableName("messages")
}

// IsValidMessageStatus reports whether s is one of the known statuses.
func IsValidMessageStatus(s string) bool {
	switch s {
	case MessageStatusPending, MessageStatusSent, MessageStatusFailed, MessageStatusReceived, MessageStatusRead:
		return true
	}
	return false
}

// InboundMessage is a provider-sourced message ready for persistence.
type InboundMessage struct {
	ExternalID string
	Content    string
	MediaURL   string
	MediaType  string
}

// OutboundMessage is a user-authored message ready for persistence and dispatch.
type OutboundMessage struct {
	Content   string  `json:"content" validate:"required_without=MediaURL,max=4096"`
	MediaURL  string  `json:"mediaUrl,omitempty" validate:"omitempty,url"`
	MediaType string  `json:"mediaType,omitempty" validate:"omitempty,oneof=image video audio document"`
	SenderID  *string `json:"-"`
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
