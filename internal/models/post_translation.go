package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostTranslation holds the translated content for one post within one job.
// At most one row per (job, post) pair; reprocessing upserts.
type PostTranslation struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	TranslationJobID  string    `gorm:"not null;column:translation_job_id;uniqueIndex:idx_post_translations_job_post" json:"translation_job_id"`
	PostID            string    `gorm:"not null;column:post_id;uniqueIndex:idx_post_translations_job_post" json:"post_id"`
	TargetLanguage    string    `gorm:"not null;column:target_language" json:"target_language"`
	TranslatedTitle   string    `gorm:"column:translated_title" json:"translated_title"`
	TranslatedContent string    `gorm:"type:text;column:translated_content" json:"translated_content"`
	TranslatedExcerpt string    `gorm:"type:text;column:translated_excerpt" json:"translated_excerpt"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (pt *PostTranslation) BeforeCreate(tx *gorm.DB) error {
	if pt.ID == "" {
		pt.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (PostTranslation) TableName() string {
	return "post_translations"
}
