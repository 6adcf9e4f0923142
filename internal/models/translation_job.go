package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Translation job statuses. Transitions are monotonic: queued -> processing ->
// exactly one of the three terminal states.
const (
	JobStatusQueued              = "queued"
	JobStatusProcessing          = "processing"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// TranslationJob represents one batch translation request
type TranslationJob struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Status         string    `gorm:"not null;default:queued;index" json:"status"`
	SourceLanguage string    `gorm:"not null;column:source_language" json:"source_language"`
	TargetLanguage string    `gorm:"not null;column:target_language" json:"target_language"`
	TotalItems     int       `gorm:"not null;column:total_items" json:"total_items"` // Fixed at creation, always > 0
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (tj *TranslationJob) BeforeCreate(tx *gorm.DB) error {
	if tj.ID == "" {
		tj.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (TranslationJob) TableName() string {
	return "translation_jobs"
}

// IsTerminal reports whether the job has reached a final state
func (tj *TranslationJob) IsTerminal() bool {
	switch tj.Status {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	}
	return false
}
