package content

import "contentsync-desktop/internal/models"

// FetchRequest pulls a page of posts from a profile's source site
type FetchRequest struct {
	ProfileID  string   `json:"profileId"`
	PostType   string   `json:"postType"` // post, page; defaults to post
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Search     string   `json:"search,omitempty"`
	After      string   `json:"after,omitempty"`  // ISO-8601 lower bound on publish date
	Before     string   `json:"before,omitempty"` // ISO-8601 upper bound on publish date
	Categories []int    `json:"categories,omitempty"`
	Tags       []int    `json:"tags,omitempty"`
	Statuses   []string `json:"statuses,omitempty"` // source-site statuses, default publish
}

// Pagination describes a page window over a larger result set
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
}

// FetchResponse returns the fetched (and locally stored) posts
type FetchResponse struct {
	Posts      []models.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// ListRequest queries locally stored posts
type ListRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Status string `json:"status,omitempty"` // fetched, translated, published
	Search string `json:"search,omitempty"`
}

// ListResponse is one page of locally stored posts
type ListResponse struct {
	Posts      []models.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// Preview pairs a stored post with its most recent translation, if any
type Preview struct {
	Post        models.Post             `json:"post"`
	Translation *models.PostTranslation `json:"translation,omitempty"`
}

// PublishRequest pushes a translated post to a profile's target site
type PublishRequest struct {
	ProfileID string `json:"profileId"`
	PostID    string `json:"postId"`
	JobID     string `json:"jobId,omitempty"`  // pick a specific job's translation
	Status    string `json:"status,omitempty"` // target post status, defaults to draft
}

// PublishResponse reports the created target-site post
type PublishResponse struct {
	TargetPostID int    `json:"targetPostId"`
	TargetURL    string `json:"targetUrl"`
	Status       string `json:"status"`
}

// postMetadata is the JSON blob stored in Post.Metadata
type postMetadata struct {
	WPID       int      `json:"wp_id"`
	Link       string   `json:"link"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}
