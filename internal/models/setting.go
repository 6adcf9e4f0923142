package models

import "time"

// Setting is a single application configuration entry. Secret values
// (provider API key) are stored AES-encrypted by the caller.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Encrypted bool      `gorm:"default:false" json:"encrypted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Setting) TableName() string {
	return "settings"
}
