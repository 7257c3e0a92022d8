package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Funnel is an ordered pipeline of steps. One funnel per company is the default.
type Funnel struct {
	ID        string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string         `json:"companyId" gorm:"type:text;not null;index"`
	Name      string         `json:"name" gorm:"type:text"`
	IsDefault bool           `json:"isDefault" gorm:"default:false"`
	Steps     []FunnelStep   `json:"steps,omitempty" gorm:"foreignKey:FunnelID"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Funnel) TableName(namer schema.Namer) string {
	return namer.TableName("funnels")
}

// FunnelStep is a kanban column. Order is stable but not enforced unique.
type FunnelStep struct {
	ID        string         `json:"id" gorm:"primaryKey;type:text"`
	FunnelID  string         `json:"funnelId" gorm:"type:text;not null;index"`
	Name      string         `json:"name" gorm:"type:text"`
	Order     int            `json:"order" gorm:"column:order"`
	Color     string         `json:"color,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (FunnelStep) TableName(namer schema.Namer) string {
	return namer.TableName("funnel_steps")
}
