package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TranslationError records a per-item translation failure within a job.
// Multiple rows may exist per (job, post) across retries.
type TranslationError struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	TranslationJobID string    `gorm:"not null;column:translation_job_id;index" json:"translation_job_id"`
	PostID           string    `gorm:"not null;column:post_id" json:"post_id"`
	ErrorMessage     string    `gorm:"not null;column:error_message" json:"error_message"`
	ErrorCode        string    `gorm:"column:error_code" json:"error_code"`
	RetryCount       int       `gorm:"column:retry_count;default:0" json:"retry_count"` // Informational only
	CreatedAt        time.Time `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (te *TranslationError) BeforeCreate(tx *gorm.DB) error {
	if te.ID == "" {
		te.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (TranslationError) TableName() string {
	return "translation_errors"
}
