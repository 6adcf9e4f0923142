package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"contentsync-desktop/internal/models"
	"contentsync-desktop/internal/services/content"
	"contentsync-desktop/internal/services/translation"
)

// ContentServiceInterface defines the interface for content service integration
type ContentServiceInterface interface {
	FetchContent(req content.FetchRequest) (*content.FetchResponse, error)
}

// TranslationServiceInterface defines the interface for translation service integration
type TranslationServiceInterface interface {
	CreateJob(req translation.BatchRequest) (*translation.BatchResponse, error)
	GetJobStatus(jobID string) (*translation.JobStatusResponse, error)
}

// Service handles scheduled job management and execution
type Service struct {
	db                 *gorm.DB
	ctx                context.Context
	cron               *cron.Cron
	jobs               map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu             sync.RWMutex
	contentService     ContentServiceInterface
	translationService TranslationServiceInterface
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, ctx context.Context, contentService ContentServiceInterface, translationService TranslationServiceInterface) *Service {
	// Create cron scheduler with seconds support
	c := cron.New(cron.WithSeconds())

	return &Service{
		db:                 db,
		ctx:                ctx,
		cron:               c,
		jobs:               make(map[string]cron.EntryID),
		contentService:     contentService,
		translationService: translationService,
	}
}

// Start initializes the scheduler and loads enabled jobs from database
func (s *Service) Start() error {
	log.Println("Starting scheduler...")

	// Auto-migrate ScheduledJob table
	if err := s.db.AutoMigrate(&models.ScheduledJob{}); err != nil {
		return fmt.Errorf("failed to migrate scheduled_jobs table: %w", err)
	}

	// Start the cron scheduler
	s.cron.Start()
	log.Println("Cron scheduler started")

	// Load all enabled jobs from database
	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.scheduleJob(&job); err != nil {
			log.Printf("WARNING: Failed to schedule job %s (%s): %v", job.Name, job.ID, err)
		} else {
			log.Printf("Scheduled job: %s (%s) with cron: %s", job.Name, job.ID, job.Cron)
		}
	}

	log.Printf("Scheduler started with %d enabled jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("Scheduler stopped")
	}
}

// ListJobs retrieves all scheduled jobs
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.toJobListResponse(&job)
	}

	return responses, nil
}

// UpsertJob creates or updates a scheduled job
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	// Validate required fields
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", fmt.Errorf("name, job_type, and cron are required")
	}

	// Normalize and validate cron expression (convert 5-field to 6-field)
	normalizedCron, err := normalizeCron(req.Cron)
	if err != nil {
		return "", err
	}
	req.Cron = normalizedCron

	// Find or create job
	var job models.ScheduledJob
	result := s.db.Where("name = ?", req.Name).First(&job)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			// Create new job
			job = models.ScheduledJob{
				ID:   uuid.New().String(),
				Name: req.Name,
			}
		} else {
			return "", fmt.Errorf("failed to query job: %w", result.Error)
		}
	}

	// Update job fields
	job.JobType = req.JobType
	job.Cron = req.Cron
	job.Timezone = req.Timezone
	if job.Timezone == "" {
		job.Timezone = "UTC"
	}
	job.Enabled = req.Enabled

	// Handle payload
	payloadStr := ""
	if req.Payload != nil {
		switch p := req.Payload.(type) {
		case string:
			payloadStr = p
		default:
			data, err := json.Marshal(p)
			if err != nil {
				return "", fmt.Errorf("failed to marshal payload: %w", err)
			}
			payloadStr = string(data)
		}
	}
	job.Payload = payloadStr

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	nextRun := schedule.Next(time.Now())
	job.NextRunAt = &nextRun

	// Save to database
	if result.Error == gorm.ErrRecordNotFound {
		if err := s.db.Create(&job).Error; err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}
	} else {
		if err := s.db.Save(&job).Error; err != nil {
			return "", fmt.Errorf("failed to update job: %w", err)
		}
	}

	// Reschedule in cron
	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}

	return job.ID, nil
}

// DeleteJob removes a scheduled job
func (s *Service) DeleteJob(jobID string) error {
	// Remove from cron if exists
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
	s.jobsMu.Unlock()

	// Delete from database
	if err := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

// scheduleJob adds a job to the cron scheduler
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	if !job.Enabled {
		return nil
	}

	// Remove existing entry if present
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[job.ID]; exists {
		s.cron.Remove(entryID)
	}
	s.jobsMu.Unlock()

	// Add job to cron
	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(jobID)
	})

	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()

	return nil
}

// rescheduleJob reloads a job from database and reschedules it
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Job was deleted, remove from cron
			s.jobsMu.Lock()
			if entryID, exists := s.jobs[jobID]; exists {
				s.cron.Remove(entryID)
				delete(s.jobs, jobID)
			}
			s.jobsMu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	return s.scheduleJob(&job)
}

// executeJob runs a scheduled job
func (s *Service) executeJob(jobID string) {
	log.Printf("Executing scheduled job: %s", jobID)

	// Load job from database
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		log.Printf("ERROR: Failed to load job %s: %v", jobID, err)
		return
	}

	// Update last run time
	now := time.Now()
	job.LastRunAt = &now

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		log.Printf("WARNING: Failed to parse cron for next run: %v", err)
	} else {
		nextRun := schedule.Next(now)
		job.NextRunAt = &nextRun
	}

	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("WARNING: Failed to update job run times: %v", err)
	}

	// Parse payload
	var payload map[string]interface{}
	if job.Payload != "" {
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			log.Printf("ERROR: Failed to parse job payload: %v", err)
			return
		}
	}

	// Execute based on job type
	switch job.JobType {
	case "content_sync":
		s.runContentSyncJob(payload)
	case "batch_translation":
		s.runBatchTranslationJob(payload)
	default:
		log.Printf("WARNING: Unknown job type: %s", job.JobType)
	}

	log.Printf("Completed scheduled job: %s", jobID)
}

// runContentSyncJob pulls fresh content from a profile's source site
func (s *Service) runContentSyncJob(payload map[string]interface{}) {
	profileID, _ := payload["profile_id"].(string)
	if profileID == "" {
		log.Printf("WARNING: Incomplete content sync job payload (profile_id required)")
		return
	}

	postType, _ := payload["post_type"].(string)
	search, _ := payload["search"].(string)
	after, _ := payload["after"].(string)

	pages := 1
	if p, ok := payload["pages"].(float64); ok && p > 0 {
		pages = int(p)
	}
	limit := 20
	if l, ok := payload["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	log.Printf("Starting scheduled content sync for profile %s (%d pages)", profileID, pages)

	fetched := 0
	for page := 1; page <= pages; page++ {
		resp, err := s.contentService.FetchContent(content.FetchRequest{
			ProfileID: profileID,
			PostType:  postType,
			Page:      page,
			Limit:     limit,
			Search:    search,
			After:     after,
		})
		if err != nil {
			log.Printf("ERROR: Content sync failed on page %d: %v", page, err)
			return
		}

		fetched += len(resp.Posts)
		if !resp.Pagination.HasNext {
			break
		}
	}

	log.Printf("Content sync finished: %d posts fetched for profile %s", fetched, profileID)
}

// runBatchTranslationJob translates a batch of untranslated posts
func (s *Service) runBatchTranslationJob(payload map[string]interface{}) {
	sourceLang, _ := payload["source_language"].(string)
	targetLang, _ := payload["target_language"].(string)

	batchSize := 10
	if b, ok := payload["batch_size"].(float64); ok && b > 0 {
		batchSize = int(b)
	}

	// Pick the oldest untranslated posts
	var posts []models.Post
	if err := s.db.Where("status = ?", "fetched").
		Order("created_at ASC").
		Limit(batchSize).
		Find(&posts).Error; err != nil {
		log.Printf("ERROR: Failed to load posts for batch translation: %v", err)
		return
	}
	if len(posts) == 0 {
		log.Println("Batch translation: no untranslated posts, skipping")
		return
	}

	postIDs := make([]string, len(posts))
	for i, post := range posts {
		postIDs[i] = post.ID
	}

	resp, err := s.translationService.CreateJob(translation.BatchRequest{
		PostIDs:        postIDs,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
	})
	if err != nil {
		log.Printf("ERROR: Failed to start batch translation: %v", err)
		return
	}

	log.Printf("Batch translation started with job ID: %s (%d items)", resp.JobID, resp.TotalItems)

	// Monitor until terminal (with timeout) - run in background to not block scheduler
	go func() {
		timeout := time.After(30 * time.Minute)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-timeout:
				log.Printf("WARNING: Batch translation %s timed out after 30 minutes", resp.JobID)
				return
			case <-ticker.C:
				status, err := s.translationService.GetJobStatus(resp.JobID)
				if err != nil {
					log.Printf("ERROR: Failed to get status for job %s: %v", resp.JobID, err)
					return
				}

				switch status.Status {
				case models.JobStatusCompleted, models.JobStatusCompletedWithErrors:
					log.Printf("Scheduled batch translation finished: %s (%d/%d items, %d errors)",
						status.Status, status.ProcessedItems, status.TotalItems, len(status.Errors))
					return
				case models.JobStatusFailed:
					log.Printf("ERROR: Batch translation failed (job: %s)", resp.JobID)
					if len(status.Errors) > 0 {
						log.Printf("Last error: %s", status.Errors[len(status.Errors)-1].Message)
					}
					return
				}
			}
		}
	}()
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	// Trim whitespace
	cronExpr = strings.TrimSpace(cronExpr)

	// Check if it's already 6-field
	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		// Already 6-field, try to validate it
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cronExpr); err == nil {
			return cronExpr, nil // Valid 6-field expression
		}
	}

	// Assume 5-field, validate and convert
	if len(fields) == 5 {
		// Validate as standard 5-field cron
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}

func (s *Service) toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:        job.ID,
		Name:      job.Name,
		JobType:   job.JobType,
		Cron:      job.Cron,
		Timezone:  job.Timezone,
		Enabled:   job.Enabled,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}

	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}

	return resp
}
