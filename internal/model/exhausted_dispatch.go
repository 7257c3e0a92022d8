package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// ExhaustedDispatch records a dispatch job that used up all its delivery attempts.
type ExhaustedDispatch struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time      `json:"createdAt"`
	CompanyID  string         `json:"companyId" gorm:"type:text;not null;index"`
	MessageID  string         `json:"messageId" gorm:"type:text;not null;index"`
	Subject    string         `json:"subject" gorm:"type:text;not null"`
	LastError  string         `json:"lastError" gorm:"type:text"`
	Attempts   int            `json:"attempts"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Resolved   bool           `json:"resolved" gorm:"index;default:false"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
}

func (ExhaustedDispatch) TableName(namer schema.Namer) string {
	return namer.TableName("exhausted_dispatches")
}
