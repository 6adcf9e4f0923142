package progress

import "time"

// ErrorDetail describes a single failed item inside a progress snapshot
type ErrorDetail struct {
	PostID  string `json:"postId"`
	Message string `json:"message"`
}

// Summary describes the outcome of a finished job
type Summary struct {
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Status     string `json:"status"`
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewConnectedEvent greets a freshly registered client
func NewConnectedEvent() Event {
	return Event{
		"type":      "connected",
		"message":   "Connected to translation progress updates",
		"timestamp": isoNow(),
	}
}

// NewJobStartedEvent announces that job execution has begun
func NewJobStartedEvent(jobID string, totalItems int) Event {
	return Event{
		"type":       "job-started",
		"jobId":      jobID,
		"totalItems": totalItems,
		"timestamp":  isoNow(),
	}
}

// NewProgressEvent carries a cumulative progress snapshot
func NewProgressEvent(jobID string, progress, processed, total int, errs []ErrorDetail) Event {
	if errs == nil {
		errs = []ErrorDetail{}
	}
	return Event{
		"type":           "translation-progress",
		"jobId":          jobID,
		"progress":       progress,
		"processedItems": processed,
		"totalItems":     total,
		"errors":         errs,
		"timestamp":      isoNow(),
	}
}

// NewItemCompletedEvent marks a single item as finished (success or error)
func NewItemCompletedEvent(jobID, postID, status string, progress int) Event {
	return Event{
		"type":      "item-completed",
		"jobId":     jobID,
		"postId":    postID,
		"status":    status,
		"progress":  progress,
		"timestamp": isoNow(),
	}
}

// NewJobCompletedEvent announces terminal job state with an outcome summary
func NewJobCompletedEvent(jobID string, summary Summary) Event {
	return Event{
		"type":      "job-completed",
		"jobId":     jobID,
		"summary":   summary,
		"timestamp": isoNow(),
	}
}

// NewErrorEvent reports a per-item or job-level failure
func NewErrorEvent(jobID, postID, message, code string) Event {
	ev := Event{
		"type":      "error-occurred",
		"jobId":     jobID,
		"error":     message,
		"code":      code,
		"timestamp": isoNow(),
	}
	if postID != "" {
		ev["postId"] = postID
	}
	return ev
}
