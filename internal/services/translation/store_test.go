package translation

import (
	"testing"
	"time"

	"contentsync-desktop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Post{},
		&models.TranslationJob{},
		&models.PostTranslation{},
		&models.TranslationError{},
	))
	return db
}

func TestGormStoreJobs(t *testing.T) {
	t.Run("Should create and load a job", func(t *testing.T) {
		store := NewGormStore(setupTestDB(t))

		job := &models.TranslationJob{
			Status:         models.JobStatusQueued,
			SourceLanguage: "en",
			TargetLanguage: "ms",
			TotalItems:     3,
		}
		require.NoError(t, store.CreateJob(job))
		assert.NotEmpty(t, job.ID, "UUID assigned on create")

		loaded, err := store.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusQueued, loaded.Status)
		assert.Equal(t, 3, loaded.TotalItems)
	})

	t.Run("Should return NotFoundError for unknown job", func(t *testing.T) {
		store := NewGormStore(setupTestDB(t))

		_, err := store.GetJob("nope")

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Should update job status", func(t *testing.T) {
		store := NewGormStore(setupTestDB(t))
		job := &models.TranslationJob{Status: models.JobStatusQueued, SourceLanguage: "en", TargetLanguage: "ms", TotalItems: 1}
		require.NoError(t, store.CreateJob(job))

		require.NoError(t, store.UpdateJobStatus(job.ID, models.JobStatusProcessing))

		loaded, err := store.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusProcessing, loaded.Status)
	})

	t.Run("Should list jobs newest first with status filter", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewGormStore(db)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 4; i++ {
			status := models.JobStatusCompleted
			if i == 3 {
				status = models.JobStatusFailed
			}
			job := models.TranslationJob{
				Status: status, SourceLanguage: "en", TargetLanguage: "ms", TotalItems: 1,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, db.Create(&job).Error)
		}

		jobs, total, err := store.ListJobs(1, 2, "")
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt), "Newest first")

		failed, total, err := store.ListJobs(1, 10, models.JobStatusFailed)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, failed, 1)
	})

	t.Run("Should delete job with owned rows", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewGormStore(db)
		job := &models.TranslationJob{Status: models.JobStatusCompleted, SourceLanguage: "en", TargetLanguage: "ms", TotalItems: 1}
		require.NoError(t, store.CreateJob(job))
		require.NoError(t, store.UpsertResult(&models.PostTranslation{
			TranslationJobID: job.ID, PostID: "p1", TargetLanguage: "ms",
		}))
		require.NoError(t, store.RecordError(&models.TranslationError{
			TranslationJobID: job.ID, PostID: "p2", ErrorMessage: "boom",
		}))

		require.NoError(t, store.DeleteJob(job.ID))

		_, err := store.GetJob(job.ID)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)

		var count int64
		db.Model(&models.PostTranslation{}).Where("translation_job_id = ?", job.ID).Count(&count)
		assert.Zero(t, count)
		db.Model(&models.TranslationError{}).Where("translation_job_id = ?", job.ID).Count(&count)
		assert.Zero(t, count)
	})
}

func TestGormStoreResults(t *testing.T) {
	t.Run("Should upsert result per job and post", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewGormStore(db)

		first := &models.PostTranslation{
			TranslationJobID: "job-1", PostID: "p1", TargetLanguage: "ms",
			TranslatedTitle: "v1",
		}
		require.NoError(t, store.UpsertResult(first))

		second := &models.PostTranslation{
			TranslationJobID: "job-1", PostID: "p1", TargetLanguage: "ms",
			TranslatedTitle: "v2",
		}
		require.NoError(t, store.UpsertResult(second))

		var rows []models.PostTranslation
		require.NoError(t, db.Find(&rows).Error)
		require.Len(t, rows, 1, "Reprocessing replaces, never duplicates")
		assert.Equal(t, "v2", rows[0].TranslatedTitle)
	})

	t.Run("Should count results plus distinct errored posts as processed", func(t *testing.T) {
		store := NewGormStore(setupTestDB(t))

		require.NoError(t, store.UpsertResult(&models.PostTranslation{
			TranslationJobID: "job-1", PostID: "p1", TargetLanguage: "ms",
		}))
		require.NoError(t, store.UpsertResult(&models.PostTranslation{
			TranslationJobID: "job-1", PostID: "p2", TargetLanguage: "ms",
		}))
		// Two error rows for the same post count once
		require.NoError(t, store.RecordError(&models.TranslationError{
			TranslationJobID: "job-1", PostID: "p3", ErrorMessage: "first",
		}))
		require.NoError(t, store.RecordError(&models.TranslationError{
			TranslationJobID: "job-1", PostID: "p3", ErrorMessage: "second",
		}))
		// Other jobs never bleed in
		require.NoError(t, store.RecordError(&models.TranslationError{
			TranslationJobID: "job-2", PostID: "p9", ErrorMessage: "other",
		}))

		processed, err := store.CountProcessed("job-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), processed)
	})

	t.Run("Should load only existing posts", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewGormStore(db)
		require.NoError(t, db.Create(&models.Post{
			ID: "p1", SourceSiteID: "site", SourcePostID: "1", Title: "Hello", Status: "fetched",
		}).Error)

		posts, err := store.LoadPosts([]string{"p1", "missing"})

		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "p1", posts[0].ID)
	})
}
