package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Ticket is the conversation between a company and one contact on one channel account.
// At most one live ticket exists per (company, contact, channel account).
type Ticket struct {
	ID               string          `json:"id" gorm:"primaryKey;type:text"`
	CompanyID        string          `json:"companyId" gorm:"type:text;not null;uniqueIndex:idx_tickets_open_conversation,where:deleted_at IS NULL"`
	ContactID        string          `json:"contactId" gorm:"type:text;not null;uniqueIndex:idx_tickets_open_conversation,where:deleted_at IS NULL"`
	ChannelAccountID string          `json:"channelAccountId" gorm:"type:text;not null;uniqueIndex:idx_tickets_open_conversation,where:deleted_at IS NULL"`
	FunnelStepID     string          `json:"funnelStepId" gorm:"type:text;not null;index"`
	AssignedUserID   *string         `json:"assignedUserId" gorm:"type:text;index"`
	LastMessageAt    time.Time       `json:"lastMessageAt" gorm:"index"`
	Contact          *Contact        `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
	ChannelAccount   *ChannelAccount `json:"channelAccount,omitempty" gorm:"foreignKey:ChannelAccountID"`
	CreatedAt        time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Ticket) TableName(namer schema.Namer) string {
	return namer.TableName("tickets")
}
