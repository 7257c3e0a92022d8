package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Contact is a WhatsApp counterpart of a company, unique by phone among live rows.
type Contact struct {
	ID            string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID     string         `json:"companyId" gorm:"type:text;not null;uniqueIndex:idx_contacts_company_phone,where:deleted_at IS NULL"`
	Phone         string         `json:"phone" gorm:"type:text;not null;uniqueIndex:idx_contacts_company_phone,where:deleted_at IS NULL" validate:"required"`
	Name          string         `json:"name,omitempty" gorm:"type:text"`
	ProfilePicURL string         `json:"profilePicUrl,omitempty" gorm:"column:profile_pic_url;type:text"`
	CreatedAt     time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the Contact model, respecting the Namer.
func (Contact) TableName(namer schema.Namer) string {
	return namer.TableName("contacts")
}

// ContactHint carries optional provider data used to fill in missing contact fields.
type ContactHint struct {
	Name       string
	ProfilePic string
}

// MissingFields returns the column updates the hint can contribute to c.
// Existing values are never overwritten. A name equal to the phone is the
// placeholder written on creation and counts as missing.
func (c *Contact) MissingFields(hint ContactHint) map[string]interface{} {
	updates := map[string]interface{}{}
	if hint.Name != "" && (c.Name == "" || c.Name == c.Phone) && hint.Name != c.Name {
		updates["name"] = hint.Name
	}
	if hint.ProfilePic != "" && c.ProfilePicURL == "" {
		updates["profile_pic_url"] = hint.ProfilePic
	}
	return updates
}
