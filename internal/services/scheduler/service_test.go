package scheduler

import (
	"context"
	"testing"

	"contentsync-desktop/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNormalizeCron(t *testing.T) {
	t.Run("Should convert 5-field to 6-field cron", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected string
		}{
			{
				name:     "Daily at 2 AM",
				input:    "0 2 * * *",
				expected: "0 0 2 * * *",
			},
			{
				name:     "Every 15 minutes",
				input:    "*/15 * * * *",
				expected: "0 */15 * * * *",
			},
			{
				name:     "Every Monday at 9 AM",
				input:    "0 9 * * 1",
				expected: "0 0 9 * * 1",
			},
			{
				name:     "First day of month at midnight",
				input:    "0 0 1 * *",
				expected: "0 0 0 1 * *",
			},
			{
				name:     "At 3:30 PM every day",
				input:    "30 15 * * *",
				expected: "0 30 15 * * *",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := normalizeCron(tt.input)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			})
		}
	})

	t.Run("Should keep 6-field cron unchanged", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{
				name:  "6-field daily at 2 AM",
				input: "0 0 2 * * *",
			},
			{
				name:  "6-field every 15 minutes",
				input: "0 */15 * * * *",
			},
			{
				name:  "6-field with seconds",
				input: "30 0 2 * * 1",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := normalizeCron(tt.input)
				require.NoError(t, err)
				assert.Equal(t, tt.input, result)
			})
		}
	})

	t.Run("Should fail with invalid field count", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{
				name:  "Too few fields (4)",
				input: "0 2 * *",
			},
			{
				name:  "Too many fields (7)",
				input: "0 0 2 * * * 2025",
			},
			{
				name:  "Empty string",
				input: "",
			},
			{
				name:  "Single field",
				input: "*",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := normalizeCron(tt.input)
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid cron expression")
			})
		}
	})

	t.Run("Should produce expressions robfig cron accepts", func(t *testing.T) {
		normalized, err := normalizeCron("*/5 * * * *")
		require.NoError(t, err)

		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		_, err = parser.Parse(normalized)
		assert.NoError(t, err)
	})
}

func setupSchedulerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ScheduledJob{}, &models.Post{}))
	return db
}

func TestUpsertJob(t *testing.T) {
	t.Run("Should create job with normalized cron and next run", func(t *testing.T) {
		db := setupSchedulerDB(t)
		service := NewService(db, context.Background(), nil, nil)

		jobID, err := service.UpsertJob(UpsertJobRequest{
			Name:    "nightly-sync",
			JobType: "content_sync",
			Cron:    "0 2 * * *",
			Enabled: false,
			Payload: map[string]interface{}{"profile_id": "prof-1"},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, jobID)

		var job models.ScheduledJob
		require.NoError(t, db.First(&job, "id = ?", jobID).Error)
		assert.Equal(t, "0 0 2 * * *", job.Cron)
		assert.Equal(t, "UTC", job.Timezone)
		assert.NotNil(t, job.NextRunAt)
		assert.Contains(t, job.Payload, "prof-1")
	})

	t.Run("Should update existing job by name", func(t *testing.T) {
		db := setupSchedulerDB(t)
		service := NewService(db, context.Background(), nil, nil)

		firstID, err := service.UpsertJob(UpsertJobRequest{
			Name: "nightly-sync", JobType: "content_sync", Cron: "0 2 * * *",
		})
		require.NoError(t, err)

		secondID, err := service.UpsertJob(UpsertJobRequest{
			Name: "nightly-sync", JobType: "batch_translation", Cron: "0 3 * * *",
		})
		require.NoError(t, err)
		assert.Equal(t, firstID, secondID, "Same name updates in place")

		var count int64
		db.Model(&models.ScheduledJob{}).Count(&count)
		assert.Equal(t, int64(1), count)

		var job models.ScheduledJob
		require.NoError(t, db.First(&job, "id = ?", firstID).Error)
		assert.Equal(t, "batch_translation", job.JobType)
		assert.Equal(t, "0 0 3 * * *", job.Cron)
	})

	t.Run("Should reject missing required fields", func(t *testing.T) {
		service := NewService(setupSchedulerDB(t), context.Background(), nil, nil)

		_, err := service.UpsertJob(UpsertJobRequest{Name: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required")
	})

	t.Run("Should reject invalid cron", func(t *testing.T) {
		service := NewService(setupSchedulerDB(t), context.Background(), nil, nil)

		_, err := service.UpsertJob(UpsertJobRequest{
			Name: "x", JobType: "content_sync", Cron: "not a cron",
		})
		assert.Error(t, err)
	})
}

func TestListAndDeleteJobs(t *testing.T) {
	t.Run("Should list jobs with run times", func(t *testing.T) {
		db := setupSchedulerDB(t)
		service := NewService(db, context.Background(), nil, nil)

		_, err := service.UpsertJob(UpsertJobRequest{
			Name: "job-a", JobType: "content_sync", Cron: "0 2 * * *",
		})
		require.NoError(t, err)

		jobs, err := service.ListJobs()
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "job-a", jobs[0].Name)
		assert.NotNil(t, jobs[0].NextRun)
	})

	t.Run("Should delete job", func(t *testing.T) {
		db := setupSchedulerDB(t)
		service := NewService(db, context.Background(), nil, nil)

		jobID, err := service.UpsertJob(UpsertJobRequest{
			Name: "job-a", JobType: "content_sync", Cron: "0 2 * * *",
		})
		require.NoError(t, err)

		require.NoError(t, service.DeleteJob(jobID))

		jobs, err := service.ListJobs()
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}
