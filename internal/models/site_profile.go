package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SiteProfile represents a WordPress site connection pair (source + target)
type SiteProfile struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"unique;not null" json:"name"`
	SourceURL         string    `gorm:"not null;column:source_url" json:"source_url"`
	SourceUsername    string    `gorm:"not null;column:source_username" json:"source_username"`
	SourcePasswordEnc string    `gorm:"not null;column:source_password_enc" json:"-"` // Encrypted, never expose in JSON
	TargetURL         string    `gorm:"column:target_url" json:"target_url"`
	TargetUsername    string    `gorm:"column:target_username" json:"target_username"`
	TargetPasswordEnc string    `gorm:"column:target_password_enc" json:"-"` // Encrypted, never expose in JSON
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (sp *SiteProfile) BeforeCreate(tx *gorm.DB) error {
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (SiteProfile) TableName() string {
	return "site_profiles"
}
