package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	ConnectionDisconnected = "DISCONNECTED"
	ConnectionConnecting   = "CONNECTING"
	ConnectionConnected    = "CONNECTED"
)

// ChannelAccount is one provider session (a connected WhatsApp number) of a company.
type ChannelAccount struct {
	ID          string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID   string         `json:"companyId" gorm:"type:text;not null;uniqueIndex:idx_channel_accounts_company_session,where:deleted_at IS NULL"`
	SessionName string         `json:"sessionName" gorm:"type:text;not null;index;uniqueIndex:idx_channel_accounts_company_session,where:deleted_at IS NULL"`
	Status      string         `json:"status" gorm:"type:text;default:DISCONNECTED"`
	PhoneNumber string         `json:"phoneNumber,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ChannelAccount) TableName(namer schema.Namer) string {
	return namer.TableName("channel_accounts")
}

// NormalizeConnectionState uppercases a provider state. Unknown states are kept verbatim.
func NormalizeConnectionState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
