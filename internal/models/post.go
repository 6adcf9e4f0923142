package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a locally mirrored copy of a source-site post
type Post struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	SourceSiteID     string    `gorm:"not null;column:source_site_id;uniqueIndex:idx_posts_source_site_post" json:"source_site_id"`
	SourcePostID     string    `gorm:"not null;column:source_post_id;uniqueIndex:idx_posts_source_site_post" json:"source_post_id"`
	SourceURL        string    `gorm:"column:source_url" json:"source_url"`
	Title            string    `json:"title"`
	Content          string    `gorm:"type:text" json:"content"` // Rendered HTML from the source site
	Excerpt          string    `gorm:"type:text" json:"excerpt"`
	Author           string    `json:"author"`
	Status           string    `gorm:"not null;default:fetched;index" json:"status"` // fetched, translated, published
	PostType         string    `gorm:"column:post_type" json:"post_type"`
	PublishDate      string    `gorm:"column:publish_date" json:"publish_date"`
	ModifiedDate     string    `gorm:"column:modified_date" json:"modified_date"`
	WordCount        int       `gorm:"column:word_count" json:"word_count"`
	FeaturedImageURL string    `gorm:"column:featured_image_url" json:"featured_image_url"`
	Metadata         string    `gorm:"type:text" json:"metadata"` // JSON blob (categories, tags, wp meta)
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}
