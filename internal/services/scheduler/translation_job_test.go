package scheduler

import (
	"context"
	"testing"
	"time"

	"contentsync-desktop/internal/models"
	"contentsync-desktop/internal/services/content"
	"contentsync-desktop/internal/services/translation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockContentService for testing scheduled content sync jobs
type mockContentService struct {
	calls     []content.FetchRequest
	responses []*content.FetchResponse
	err       error
}

func (m *mockContentService) FetchContent(req content.FetchRequest) (*content.FetchResponse, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	idx := len(m.calls) - 1
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return &content.FetchResponse{}, nil
}

// mockTranslationService for testing scheduled batch translation jobs
type mockTranslationService struct {
	createCalled bool
	createReq    translation.BatchRequest
	createResp   *translation.BatchResponse
	createErr    error
	statusResp   *translation.JobStatusResponse
}

func (m *mockTranslationService) CreateJob(req translation.BatchRequest) (*translation.BatchResponse, error) {
	m.createCalled = true
	m.createReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *mockTranslationService) GetJobStatus(jobID string) (*translation.JobStatusResponse, error) {
	return m.statusResp, nil
}

func TestContentSyncJobExecution(t *testing.T) {
	t.Run("Should fetch requested pages with payload filters", func(t *testing.T) {
		mock := &mockContentService{
			responses: []*content.FetchResponse{
				{Posts: make([]models.Post, 2), Pagination: content.Pagination{HasNext: true}},
				{Posts: make([]models.Post, 1), Pagination: content.Pagination{HasNext: false}},
			},
		}
		service := &Service{
			db:             setupSchedulerDB(t),
			ctx:            context.Background(),
			contentService: mock,
		}

		service.runContentSyncJob(map[string]interface{}{
			"profile_id": "prof-1",
			"post_type":  "page",
			"pages":      3.0,
			"limit":      50.0,
			"search":     "news",
		})

		require.Len(t, mock.calls, 2, "Stops early when no next page")
		assert.Equal(t, "prof-1", mock.calls[0].ProfileID)
		assert.Equal(t, "page", mock.calls[0].PostType)
		assert.Equal(t, 1, mock.calls[0].Page)
		assert.Equal(t, 50, mock.calls[0].Limit)
		assert.Equal(t, "news", mock.calls[0].Search)
		assert.Equal(t, 2, mock.calls[1].Page)
	})

	t.Run("Should skip when profile_id missing", func(t *testing.T) {
		mock := &mockContentService{}
		service := &Service{
			db:             setupSchedulerDB(t),
			ctx:            context.Background(),
			contentService: mock,
		}

		service.runContentSyncJob(map[string]interface{}{"post_type": "post"})

		assert.Empty(t, mock.calls, "FetchContent should not be called")
	})
}

func TestBatchTranslationJobExecution(t *testing.T) {
	seedPosts := func(t *testing.T, service *Service, n int, status string) {
		for i := 0; i < n; i++ {
			require.NoError(t, service.db.Create(&models.Post{
				SourceSiteID: "site",
				SourcePostID: string(rune('a' + i)),
				Title:        "Post",
				Status:       status,
			}).Error)
		}
	}

	t.Run("Should translate oldest untranslated posts", func(t *testing.T) {
		mock := &mockTranslationService{
			createResp: &translation.BatchResponse{JobID: "job-1", TotalItems: 3},
			statusResp: &translation.JobStatusResponse{
				JobID: "job-1", Status: models.JobStatusCompleted, ProcessedItems: 3, TotalItems: 3,
			},
		}
		service := &Service{
			db:                 setupSchedulerDB(t),
			ctx:                context.Background(),
			translationService: mock,
		}
		seedPosts(t, service, 3, "fetched")
		seedPosts(t, service, 2, "translated")

		service.runBatchTranslationJob(map[string]interface{}{
			"source_language": "en",
			"target_language": "zh",
			"batch_size":      10.0,
		})

		require.True(t, mock.createCalled)
		assert.Len(t, mock.createReq.PostIDs, 3, "Only fetched posts are picked up")
		assert.Equal(t, "en", mock.createReq.SourceLanguage)
		assert.Equal(t, "zh", mock.createReq.TargetLanguage)

		// Monitoring goroutine polls until terminal without errors
		time.Sleep(50 * time.Millisecond)
	})

	t.Run("Should respect batch size", func(t *testing.T) {
		mock := &mockTranslationService{
			createResp: &translation.BatchResponse{JobID: "job-1", TotalItems: 2},
			statusResp: &translation.JobStatusResponse{Status: models.JobStatusCompleted},
		}
		service := &Service{
			db:                 setupSchedulerDB(t),
			ctx:                context.Background(),
			translationService: mock,
		}
		seedPosts(t, service, 5, "fetched")

		service.runBatchTranslationJob(map[string]interface{}{"batch_size": 2.0})

		require.True(t, mock.createCalled)
		assert.Len(t, mock.createReq.PostIDs, 2)
	})

	t.Run("Should skip when nothing to translate", func(t *testing.T) {
		mock := &mockTranslationService{}
		service := &Service{
			db:                 setupSchedulerDB(t),
			ctx:                context.Background(),
			translationService: mock,
		}

		service.runBatchTranslationJob(map[string]interface{}{})

		assert.False(t, mock.createCalled, "CreateJob should not be called")
	})
}
