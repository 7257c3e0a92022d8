package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Company is the tenant root. Every other record carries its id.
type Company struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Slug      string    `json:"slug" gorm:"type:text;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Company) TableName(namer schema.Namer) string {
	return namer.TableName("companies")
}

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleAgent   = "AGENT"
)

// User is an agent of a company. Only read by the core (assignment checks, presence).
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string         `json:"companyId" gorm:"type:text;not null;uniqueIndex:idx_users_company_email,where:deleted_at IS NULL"`
	Name      string         `json:"name" gorm:"type:text"`
	Email     string         `json:"email" gorm:"type:text;uniqueIndex:idx_users_company_email,where:deleted_at IS NULL"`
	Role      string         `json:"role" gorm:"type:text;default:AGENT"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName(namer schema.Namer) string {
	return namer.TableName("users")
}
