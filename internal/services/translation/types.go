package translation

import "time"

// Default languages for batch jobs when the request omits them
const (
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "ms"
)

// Options tunes a translation request. Zero values fall back to provider
// defaults (gpt-4o-mini, 4000 max tokens, formatting preserved).
type Options struct {
	Model              string        `json:"model,omitempty"`
	Context            string        `json:"context,omitempty"`
	PreserveFormatting *bool         `json:"preserveFormatting,omitempty"`
	MaxTokens          int           `json:"maxTokens,omitempty"`
	Concurrency        int           `json:"concurrency,omitempty"`
	ChunkDelay         time.Duration `json:"-"`
}

// preserveFormatting resolves the tri-state flag (default true)
func (o Options) preserveFormatting() bool {
	if o.PreserveFormatting == nil {
		return true
	}
	return *o.PreserveFormatting
}

// TokenUsage mirrors the provider's token accounting
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TranslatedResult is the outcome of a single successful provider call
type TranslatedResult struct {
	TranslatedText string      `json:"translatedText"`
	SourceLanguage string      `json:"sourceLanguage"`
	TargetLanguage string      `json:"targetLanguage"`
	Model          string      `json:"model"`
	Usage          *TokenUsage `json:"usage,omitempty"`
}

// BatchItem is one unit of work inside a batch run
type BatchItem struct {
	ID   string
	Text string
}

// ItemResult is a successful batch item outcome
type ItemResult struct {
	ID             string
	TranslatedText string
	Model          string
	Usage          *TokenUsage
}

// ItemError is a failed batch item outcome after retries were exhausted
type ItemError struct {
	ID       string
	Err      error
	Attempts int
}

// BatchResult aggregates a full batch run. Every input item lands in exactly
// one of the two slices.
type BatchResult struct {
	Results []ItemResult
	Errors  []ItemError
}

// BatchRequest starts a batch translation job
type BatchRequest struct {
	PostIDs        []string `json:"postIds"`
	SourceLanguage string   `json:"sourceLanguage"`
	TargetLanguage string   `json:"targetLanguage"`
	Options        Options  `json:"options"`
}

// BatchResponse acknowledges job creation before any work has happened
type BatchResponse struct {
	JobID             string `json:"jobId"`
	Status            string `json:"status"`
	TotalItems        int    `json:"totalItems"`
	EstimatedDuration int    `json:"estimatedDuration"` // seconds
}

// SingleRequest translates ad-hoc text or a stored post
type SingleRequest struct {
	PostID         string  `json:"postId,omitempty"`
	Text           string  `json:"text,omitempty"`
	SourceLanguage string  `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	Options        Options `json:"options"`
}

// JobItemError is the API-facing view of a persisted item failure
type JobItemError struct {
	PostID  string `json:"postId"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JobStatusResponse is a point-in-time job snapshot
type JobStatusResponse struct {
	JobID               string         `json:"jobId"`
	Status              string         `json:"status"`
	Progress            int            `json:"progress"` // 0-100
	ProcessedItems      int            `json:"processedItems"`
	TotalItems          int            `json:"totalItems"`
	SourceLanguage      string         `json:"sourceLanguage"`
	TargetLanguage      string         `json:"targetLanguage"`
	Errors              []JobItemError `json:"errors"`
	EstimatedCompletion *string        `json:"estimatedCompletion"`
	CreatedAt           string         `json:"createdAt"`
	UpdatedAt           string         `json:"updatedAt"`
}

// JobSummary is one row in a job listing
type JobSummary struct {
	JobID          string `json:"jobId"`
	Status         string `json:"status"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	TotalItems     int    `json:"totalItems"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// Pagination describes a page window over a larger result set
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
}

// JobListResponse is a paginated job listing, newest first
type JobListResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	Pagination Pagination   `json:"pagination"`
}
