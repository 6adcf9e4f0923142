package scheduler

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	JobType   string  `json:"job_type"`
	Cron      string  `json:"cron"`
	Timezone  string  `json:"timezone"`
	Enabled   bool    `json:"enabled"`
	LastRunAt *string `json:"last_run_at"` // ISO 8601 format
	NextRun   *string `json:"next_run"`    // ISO 8601 format
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name     string      `json:"name"`
	JobType  string      `json:"job_type"` // "content_sync" or "batch_translation"
	Cron     string      `json:"cron"`
	Timezone string      `json:"timezone"`
	Enabled  bool        `json:"enabled"`
	Payload  interface{} `json:"payload"` // Can be map or string
}

// ContentSyncJobPayload represents the payload for a content sync job
type ContentSyncJobPayload struct {
	ProfileID string `json:"profile_id"`
	PostType  string `json:"post_type"`
	Pages     int    `json:"pages"`
	Limit     int    `json:"limit"`
	Search    string `json:"search"`
	After     string `json:"after"`
}

// BatchTranslationJobPayload represents the payload for a batch translation job
type BatchTranslationJobPayload struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	BatchSize      int    `json:"batch_size"`
}
