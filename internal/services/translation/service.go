package translation

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"contentsync-desktop/internal/models"
	"contentsync-desktop/internal/services/progress"
)

// Estimated provider time per item, used for the creation-time duration hint
const perItemEstimate = 10 * time.Second

// ProgressNotifier publishes job lifecycle events to subscribed clients
type ProgressNotifier interface {
	Publish(jobID string, ev progress.Event)
}

// noopNotifier is used when no notifier is wired (tests, headless runs)
type noopNotifier struct{}

func (noopNotifier) Publish(string, progress.Event) {}

// Service is the translation job controller. It owns the job lifecycle:
// validates requests, persists jobs, runs them on background goroutines and
// is the only writer of job state.
type Service struct {
	store      Store
	provider   Translator
	dispatcher *Dispatcher
	notifier   ProgressNotifier

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewService(store Store, provider Translator, notifier ProgressNotifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		store:      store,
		provider:   provider,
		dispatcher: NewDispatcher(provider),
		notifier:   notifier,
		running:    make(map[string]context.CancelFunc),
	}
}

// CreateJob validates the request, persists a queued job and starts
// execution on a background goroutine. Returns immediately with the job
// acknowledgement; progress is observable via GetJobStatus and events.
func (s *Service) CreateJob(req BatchRequest) (*BatchResponse, error) {
	if len(req.PostIDs) == 0 {
		return nil, &ValidationError{Field: "postIds", Message: "a non-empty array of post IDs is required"}
	}
	for _, id := range req.PostIDs {
		if strings.TrimSpace(id) == "" {
			return nil, &ValidationError{Field: "postIds", Message: "post IDs must be non-empty strings"}
		}
	}
	if !s.provider.IsConfigured() {
		return nil, &ConfigurationError{Message: "translation provider API key not configured"}
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = DefaultSourceLanguage
	}
	targetLang := req.TargetLanguage
	if targetLang == "" {
		targetLang = DefaultTargetLanguage
	}
	req.SourceLanguage = sourceLang
	req.TargetLanguage = targetLang

	job := &models.TranslationJob{
		Status:         models.JobStatusQueued,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		TotalItems:     len(req.PostIDs),
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[job.ID] = cancel
	s.mu.Unlock()

	go s.executeJob(ctx, job.ID, req)

	log.Printf("[%s] Translation job created: %d items, %s -> %s",
		job.ID, job.TotalItems, sourceLang, targetLang)

	return &BatchResponse{
		JobID:             job.ID,
		Status:            models.JobStatusQueued,
		TotalItems:        job.TotalItems,
		EstimatedDuration: int(math.Ceil(float64(job.TotalItems) * perItemEstimate.Seconds())),
	}, nil
}

// CancelJob cancels a running job. Items already dispatched finish; the
// remainder is recorded as cancelled and the job still reaches a terminal
// state.
func (s *Service) CancelJob(jobID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// IsRunning reports whether a job currently executes on a background goroutine
func (s *Service) IsRunning(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[jobID]
	return ok
}

// executeJob drives one job from queued to a terminal state. Runs on its own
// goroutine; panics are recovered and turn the job into failed instead of
// crashing the process.
func (s *Service) executeJob(ctx context.Context, jobID string, req BatchRequest) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] PANIC during translation job: %v", jobID, r)
			s.failJob(jobID, fmt.Sprintf("internal error: %v", r))
		}
		s.mu.Lock()
		cancel, ok := s.running[jobID]
		delete(s.running, jobID)
		s.mu.Unlock()
		if ok {
			cancel()
		}
	}()

	if err := s.store.UpdateJobStatus(jobID, models.JobStatusProcessing); err != nil {
		log.Printf("[%s] Failed to mark job processing: %v", jobID, err)
		return
	}

	posts, err := s.store.LoadPosts(req.PostIDs)
	if err != nil {
		s.failJob(jobID, fmt.Sprintf("failed to load posts: %v", err))
		return
	}
	if len(posts) == 0 {
		s.failJob(jobID, "none of the requested posts exist")
		return
	}

	total := len(req.PostIDs)
	s.notifier.Publish(jobID, progress.NewJobStartedEvent(jobID, total))

	items := make([]BatchItem, 0, len(posts))
	postsByID := make(map[string]models.Post, len(posts))
	for _, post := range posts {
		postsByID[post.ID] = post
		items = append(items, BatchItem{
			ID:   post.ID,
			Text: post.Title + "\n\n" + post.Content,
		})
	}

	var processed int
	var progressMu sync.Mutex
	onDone := func(result *ItemResult, itemErr *ItemError) {
		progressMu.Lock()
		processed++
		done := processed
		progressMu.Unlock()

		pct := percent(done, total)
		if itemErr != nil {
			s.notifier.Publish(jobID, progress.NewErrorEvent(jobID, itemErr.ID, itemErr.Err.Error(), errorCode(itemErr.Err)))
			s.notifier.Publish(jobID, progress.NewItemCompletedEvent(jobID, itemErr.ID, "error", pct))
		} else {
			s.notifier.Publish(jobID, progress.NewItemCompletedEvent(jobID, result.ID, "completed", pct))
		}
		s.notifier.Publish(jobID, progress.NewProgressEvent(jobID, pct, done, total, nil))
	}

	batch := s.dispatcher.RunBatch(ctx, items, req.TargetLanguage, req.SourceLanguage, req.Options, onDone)

	for _, result := range batch.Results {
		post := postsByID[result.ID]
		title, content := splitTranslatedText(result.TranslatedText)

		translation := &models.PostTranslation{
			TranslationJobID:  jobID,
			PostID:            result.ID,
			TargetLanguage:    req.TargetLanguage,
			TranslatedTitle:   title,
			TranslatedContent: content,
		}

		// Excerpt translation is best-effort; a failure here does not fail
		// the item
		if post.Excerpt != "" {
			if translated, err := s.provider.Translate(ctx, post.Excerpt, req.TargetLanguage, req.SourceLanguage, req.Options); err == nil {
				translation.TranslatedExcerpt = translated.TranslatedText
			} else {
				log.Printf("[%s] Excerpt translation failed for post %s: %v", jobID, result.ID, err)
			}
		}

		if err := s.store.UpsertResult(translation); err != nil {
			log.Printf("[%s] Failed to store translation for post %s: %v", jobID, result.ID, err)
		}
	}

	for _, itemErr := range batch.Errors {
		record := &models.TranslationError{
			TranslationJobID: jobID,
			PostID:           itemErr.ID,
			ErrorMessage:     itemErr.Err.Error(),
			ErrorCode:        errorCode(itemErr.Err),
			RetryCount:       itemErr.Attempts,
		}
		if err := s.store.RecordError(record); err != nil {
			log.Printf("[%s] Failed to record error for post %s: %v", jobID, itemErr.ID, err)
		}
	}

	finalStatus := models.JobStatusCompleted
	if len(batch.Errors) > 0 {
		finalStatus = models.JobStatusCompletedWithErrors
	}
	if err := s.store.UpdateJobStatus(jobID, finalStatus); err != nil {
		log.Printf("[%s] Failed to finalize job: %v", jobID, err)
	}

	summary := progress.Summary{
		Total:      total,
		Successful: len(batch.Results),
		Failed:     len(batch.Errors),
		Status:     finalStatus,
	}
	s.notifier.Publish(jobID, progress.NewJobCompletedEvent(jobID, summary))

	log.Printf("[%s] Translation job finished: %s (%d ok, %d failed)",
		jobID, finalStatus, len(batch.Results), len(batch.Errors))
}

// failJob moves a job to failed and emits the corresponding events
func (s *Service) failJob(jobID, message string) {
	if err := s.store.UpdateJobStatus(jobID, models.JobStatusFailed); err != nil {
		log.Printf("[%s] Failed to mark job failed: %v", jobID, err)
	}
	s.notifier.Publish(jobID, progress.NewErrorEvent(jobID, "", message, "TRANSLATION_ERROR"))
	s.notifier.Publish(jobID, progress.NewJobCompletedEvent(jobID, progress.Summary{
		Status: models.JobStatusFailed,
	}))
	log.Printf("[%s] Translation job failed: %s", jobID, message)
}

// GetJobStatus returns a point-in-time snapshot of a job, including
// cumulative progress and an ETA extrapolated from throughput so far
func (s *Service) GetJobStatus(jobID string) (*JobStatusResponse, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}

	processed, err := s.store.CountProcessed(jobID)
	if err != nil {
		return nil, err
	}

	storedErrs, err := s.store.ListErrors(jobID)
	if err != nil {
		return nil, err
	}
	itemErrs := make([]JobItemError, 0, len(storedErrs))
	for _, e := range storedErrs {
		itemErrs = append(itemErrs, JobItemError{
			PostID:  e.PostID,
			Message: e.ErrorMessage,
			Code:    e.ErrorCode,
		})
	}

	resp := &JobStatusResponse{
		JobID:          job.ID,
		Status:         job.Status,
		Progress:       percent(int(processed), job.TotalItems),
		ProcessedItems: int(processed),
		TotalItems:     job.TotalItems,
		SourceLanguage: job.SourceLanguage,
		TargetLanguage: job.TargetLanguage,
		Errors:         itemErrs,
		CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if job.Status == models.JobStatusProcessing && processed > 0 {
		elapsed := time.Since(job.CreatedAt)
		avgPerItem := elapsed / time.Duration(processed)
		remaining := time.Duration(int64(job.TotalItems)-processed) * avgPerItem
		eta := time.Now().Add(remaining).UTC().Format(time.RFC3339)
		resp.EstimatedCompletion = &eta
	}

	return resp, nil
}

// ListJobs returns a page of jobs, newest first, optionally filtered by status
func (s *Service) ListJobs(page, limit int, status string) (*JobListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	jobs, total, err := s.store.ListJobs(page, limit, status)
	if err != nil {
		return nil, err
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			JobID:          job.ID,
			Status:         job.Status,
			SourceLanguage: job.SourceLanguage,
			TargetLanguage: job.TargetLanguage,
			TotalItems:     job.TotalItems,
			CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:      job.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &JobListResponse{
		Jobs: summaries,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: int64(page*limit) < total,
		},
	}, nil
}

// DeleteJob removes a finished job and its results. Running jobs cannot be
// deleted.
func (s *Service) DeleteJob(jobID string) error {
	if s.IsRunning(jobID) {
		return &ValidationError{Field: "jobId", Message: "cannot delete a running job"}
	}
	if _, err := s.store.GetJob(jobID); err != nil {
		return err
	}
	return s.store.DeleteJob(jobID)
}

// TranslateText translates ad-hoc text or a stored post synchronously
func (s *Service) TranslateText(ctx context.Context, req SingleRequest) (*TranslatedResult, error) {
	text := req.Text
	if text == "" && req.PostID != "" {
		posts, err := s.store.LoadPosts([]string{req.PostID})
		if err != nil {
			return nil, err
		}
		if len(posts) == 0 {
			return nil, &NotFoundError{Resource: "post"}
		}
		text = posts[0].Title + "\n\n" + posts[0].Content
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "either text or postId is required"}
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = DefaultSourceLanguage
	}
	targetLang := req.TargetLanguage
	if targetLang == "" {
		targetLang = DefaultTargetLanguage
	}

	return s.provider.Translate(ctx, text, targetLang, sourceLang, req.Options)
}

// splitTranslatedText splits a combined title+content translation on the
// first blank line. Without a separator the whole text serves as both.
func splitTranslatedText(text string) (title, content string) {
	parts := strings.SplitN(text, "\n\n", 2)
	title = parts[0]
	if len(parts) > 1 && parts[1] != "" {
		content = parts[1]
	} else {
		content = text
	}
	return title, content
}

// percent computes rounded progress, clamped to 0-100
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(done) / float64(total) * 100))
	if p > 100 {
		p = 100
	}
	return p
}
