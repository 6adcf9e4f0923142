package translation

import (
	"errors"
	"fmt"

	"contentsync-desktop/internal/models"

	"gorm.io/gorm"
)

// Store is the persistence boundary for translation jobs. The job
// controller is the only writer; read methods back the status and listing
// endpoints.
type Store interface {
	CreateJob(job *models.TranslationJob) error
	GetJob(jobID string) (*models.TranslationJob, error)
	UpdateJobStatus(jobID, status string) error
	DeleteJob(jobID string) error
	ListJobs(page, limit int, status string) ([]models.TranslationJob, int64, error)

	LoadPosts(postIDs []string) ([]models.Post, error)
	UpsertResult(result *models.PostTranslation) error
	RecordError(item *models.TranslationError) error
	ListErrors(jobID string) ([]models.TranslationError, error)
	CountProcessed(jobID string) (int64, error)
}

// GormStore is the GORM-backed Store implementation
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateJob(job *models.TranslationJob) error {
	if err := s.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create translation job: %w", err)
	}
	return nil
}

func (s *GormStore) GetJob(jobID string) (*models.TranslationJob, error) {
	var job models.TranslationJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "translation job"}
		}
		return nil, fmt.Errorf("failed to load translation job: %w", err)
	}
	return &job, nil
}

func (s *GormStore) UpdateJobStatus(jobID, status string) error {
	if err := s.db.Model(&models.TranslationJob{}).
		Where("id = ?", jobID).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// DeleteJob removes a job and its owned results and errors
func (s *GormStore) DeleteJob(jobID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("translation_job_id = ?", jobID).Delete(&models.PostTranslation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("translation_job_id = ?", jobID).Delete(&models.TranslationError{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TranslationJob{}, "id = ?", jobID).Error
	})
}

// ListJobs returns one page of jobs, newest first, optionally filtered by
// status, along with the total matching count
func (s *GormStore) ListJobs(page, limit int, status string) ([]models.TranslationJob, int64, error) {
	query := s.db.Model(&models.TranslationJob{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count translation jobs: %w", err)
	}

	var jobs []models.TranslationJob
	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list translation jobs: %w", err)
	}

	return jobs, total, nil
}

// LoadPosts resolves post IDs to stored posts. Unknown IDs are silently
// dropped from the result.
func (s *GormStore) LoadPosts(postIDs []string) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.Where("id IN ?", postIDs).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	return posts, nil
}

// UpsertResult stores a translated post, replacing any previous result for
// the same (job, post) pair
func (s *GormStore) UpsertResult(result *models.PostTranslation) error {
	var existing models.PostTranslation
	err := s.db.Where("translation_job_id = ? AND post_id = ?",
		result.TranslationJobID, result.PostID).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(result).Error; err != nil {
			return fmt.Errorf("failed to store translation result: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check existing translation: %w", err)
	}

	existing.TargetLanguage = result.TargetLanguage
	existing.TranslatedTitle = result.TranslatedTitle
	existing.TranslatedContent = result.TranslatedContent
	existing.TranslatedExcerpt = result.TranslatedExcerpt
	if err := s.db.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update translation result: %w", err)
	}
	return nil
}

func (s *GormStore) RecordError(item *models.TranslationError) error {
	if err := s.db.Create(item).Error; err != nil {
		return fmt.Errorf("failed to record translation error: %w", err)
	}
	return nil
}

func (s *GormStore) ListErrors(jobID string) ([]models.TranslationError, error) {
	var errs []models.TranslationError
	if err := s.db.Where("translation_job_id = ?", jobID).
		Order("created_at ASC").Find(&errs).Error; err != nil {
		return nil, fmt.Errorf("failed to list translation errors: %w", err)
	}
	return errs, nil
}

// CountProcessed returns how many items of a job have finished, counting
// both stored results and distinct errored posts. A job with failures still
// reaches 100% progress.
func (s *GormStore) CountProcessed(jobID string) (int64, error) {
	var completed int64
	if err := s.db.Model(&models.PostTranslation{}).
		Where("translation_job_id = ?", jobID).
		Count(&completed).Error; err != nil {
		return 0, fmt.Errorf("failed to count translation results: %w", err)
	}

	var errored int64
	if err := s.db.Model(&models.TranslationError{}).
		Where("translation_job_id = ?", jobID).
		Distinct("post_id").
		Count(&errored).Error; err != nil {
		return 0, fmt.Errorf("failed to count errored items: %w", err)
	}

	return completed + errored, nil
}
