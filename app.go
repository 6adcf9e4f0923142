package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"contentsync-desktop/internal/api"
	"contentsync-desktop/internal/crypto"
	"contentsync-desktop/internal/database"
	"contentsync-desktop/internal/models"
	"contentsync-desktop/internal/services/content"
	"contentsync-desktop/internal/services/progress"
	"contentsync-desktop/internal/services/scheduler"
	"contentsync-desktop/internal/services/translation"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"gorm.io/gorm"
)

const providerAPIKeySetting = "provider_api_key"

// App struct - main application state
type App struct {
	ctx                context.Context
	db                 *gorm.DB
	selectedProfile    *models.SiteProfile
	notifier           *progress.Notifier
	contentService     *content.Service
	translationService *translation.Service
	schedulerService   *scheduler.Service
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// wailsConn bridges progress events onto the Wails runtime event bus so the
// frontend receives them without a websocket
type wailsConn struct {
	ctx context.Context
}

func (c *wailsConn) ID() string { return "frontend" }

func (c *wailsConn) Send(ev progress.Event) error {
	runtime.EventsEmit(c.ctx, "translation:"+ev.Type(), map[string]interface{}(ev))
	return nil
}

func (c *wailsConn) Close() error { return nil }

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	log.Println("Application starting up...")

	// Initialize encryption (FATAL if this fails - we cannot save profiles without it)
	if err := crypto.InitEncryption(); err != nil {
		log.Fatalf("FATAL: Encryption initialization failed: %v\nProfiles cannot be saved without encryption.", err)
	}
	log.Println("Encryption initialized successfully")

	// Initialize database
	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db
	log.Println("Database initialized successfully")

	// Progress events flow to the frontend via the Wails event bus
	a.notifier = progress.NewNotifier()
	a.notifier.Register(&wailsConn{ctx: ctx})

	a.contentService = content.NewService(db)
	log.Println("Content service initialized")

	a.initTranslationService()
	log.Println("Translation service initialized")

	a.schedulerService = scheduler.NewService(db, ctx, a.contentService, a.translationService)
	if err := a.schedulerService.Start(); err != nil {
		log.Printf("WARNING: Failed to start scheduler: %v", err)
	} else {
		log.Println("Scheduler service initialized and started")
	}

	log.Println("Startup complete")
}

// initTranslationService (re)builds the translation service with the stored
// provider API key
func (a *App) initTranslationService() {
	apiKey := a.loadProviderAPIKey()
	provider := translation.NewProvider(translation.ProviderConfig{APIKey: apiKey})
	store := translation.NewGormStore(a.db)
	a.translationService = translation.NewService(store, provider, a.notifier)
}

// loadProviderAPIKey reads and decrypts the stored provider key, "" when unset
func (a *App) loadProviderAPIKey() string {
	var setting models.Setting
	if err := a.db.First(&setting, "key = ?", providerAPIKeySetting).Error; err != nil {
		return ""
	}
	if !setting.Encrypted {
		return setting.Value
	}
	key, err := crypto.Decrypt(setting.Value)
	if err != nil {
		log.Printf("WARNING: Failed to decrypt provider API key: %v", err)
		return ""
	}
	return key
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	log.Println("Application shutting down...")

	// Stop scheduler
	if a.schedulerService != nil {
		a.schedulerService.Stop()
	}

	// Close database
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}

// ====================================================================================
// WAILS-BOUND METHODS - Exposed to Frontend
// ====================================================================================

// Profile Management Methods

// ListProfiles returns all site profiles
func (a *App) ListProfiles() ([]models.SiteProfile, error) {
	var profiles []models.SiteProfile
	if err := a.db.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile retrieves a specific site profile by ID
func (a *App) GetProfile(profileID string) (*models.SiteProfile, error) {
	var profile models.SiteProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile creates a new site profile
// NOTE: Frontend should call TestConnection() for both source and target before calling this method
// to validate credentials and URLs before saving to database
func (a *App) CreateProfile(req CreateProfileRequest) error {
	// Validate encryption is initialized
	if !crypto.IsInitialized() {
		return errors.New("encryption system not initialized - cannot save profiles")
	}

	// Encrypt passwords
	sourcePasswordEnc, err := crypto.EncryptPassword(req.SourcePassword)
	if err != nil {
		return err
	}

	targetPasswordEnc, err := crypto.EncryptPassword(req.TargetPassword)
	if err != nil {
		return err
	}

	profile := &models.SiteProfile{
		Name:              req.Name,
		SourceURL:         req.SourceURL,
		SourceUsername:    req.SourceUsername,
		SourcePasswordEnc: sourcePasswordEnc,
		TargetURL:         req.TargetURL,
		TargetUsername:    req.TargetUsername,
		TargetPasswordEnc: targetPasswordEnc,
	}

	return a.db.Create(profile).Error
}

// UpdateProfile updates an existing site profile
func (a *App) UpdateProfile(profileID string, req CreateProfileRequest) error {
	var profile models.SiteProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}

	// Update fields
	profile.Name = req.Name
	profile.SourceURL = req.SourceURL
	profile.SourceUsername = req.SourceUsername
	profile.TargetURL = req.TargetURL
	profile.TargetUsername = req.TargetUsername

	// Encrypt passwords if provided
	if req.SourcePassword != "" {
		sourcePasswordEnc, err := crypto.EncryptPassword(req.SourcePassword)
		if err != nil {
			return err
		}
		profile.SourcePasswordEnc = sourcePasswordEnc
	}

	if req.TargetPassword != "" {
		targetPasswordEnc, err := crypto.EncryptPassword(req.TargetPassword)
		if err != nil {
			return err
		}
		profile.TargetPasswordEnc = targetPasswordEnc
	}

	return a.db.Save(&profile).Error
}

// DeleteProfile deletes a site profile
func (a *App) DeleteProfile(profileID string) error {
	return a.db.Where("id = ?", profileID).Delete(&models.SiteProfile{}).Error
}

// SelectProfile sets the currently selected profile
func (a *App) SelectProfile(profileID string) error {
	var profile models.SiteProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}
	a.selectedProfile = &profile
	log.Printf("Selected profile: %s", profile.Name)
	return nil
}

// GetSelectedProfile returns the currently selected profile
func (a *App) GetSelectedProfile() (*models.SiteProfile, error) {
	if a.selectedProfile == nil {
		return nil, nil
	}
	return a.selectedProfile, nil
}

// Content Service Methods

// FetchContent pulls a page of posts from a profile's source site
func (a *App) FetchContent(req content.FetchRequest) (*content.FetchResponse, error) {
	return a.contentService.FetchContent(req)
}

// ListContent queries locally stored posts
func (a *App) ListContent(req content.ListRequest) (*content.ListResponse, error) {
	return a.contentService.ListContent(req)
}

// GetContentPreview returns a post alongside its latest translation
func (a *App) GetContentPreview(postID string) (*content.Preview, error) {
	return a.contentService.GetContentPreview(postID)
}

// PublishTranslation pushes a translated post to the profile's target site
func (a *App) PublishTranslation(req content.PublishRequest) (*content.PublishResponse, error) {
	return a.contentService.PublishTranslation(req)
}

// Translation Service Methods

// StartBatchTranslation creates a batch translation job and returns immediately
func (a *App) StartBatchTranslation(req translation.BatchRequest) (*translation.BatchResponse, error) {
	return a.translationService.CreateJob(req)
}

// GetTranslationJobStatus retrieves a job's progress snapshot
func (a *App) GetTranslationJobStatus(jobID string) (*translation.JobStatusResponse, error) {
	return a.translationService.GetJobStatus(jobID)
}

// ListTranslationJobs returns a page of jobs, newest first
func (a *App) ListTranslationJobs(page, limit int, status string) (*translation.JobListResponse, error) {
	return a.translationService.ListJobs(page, limit, status)
}

// CancelTranslationJob cancels a running job; reports whether it was running
func (a *App) CancelTranslationJob(jobID string) bool {
	return a.translationService.CancelJob(jobID)
}

// DeleteTranslationJob removes a finished job and its results
func (a *App) DeleteTranslationJob(jobID string) error {
	return a.translationService.DeleteJob(jobID)
}

// TranslateText translates ad-hoc text or a stored post synchronously
func (a *App) TranslateText(req translation.SingleRequest) (*translation.TranslatedResult, error) {
	return a.translationService.TranslateText(a.ctx, req)
}

// SubscribeToJob routes a job's progress events to the frontend
func (a *App) SubscribeToJob(jobID string) {
	a.notifier.Subscribe("frontend", jobID)
}

// ====================================================================================
// SCHEDULER SERVICE OPERATIONS
// ====================================================================================

// ListScheduledJobs retrieves all scheduled jobs
func (a *App) ListScheduledJobs() ([]scheduler.JobListResponse, error) {
	return a.schedulerService.ListJobs()
}

// UpsertScheduledJob creates or updates a scheduled job
func (a *App) UpsertScheduledJob(req scheduler.UpsertJobRequest) (string, error) {
	return a.schedulerService.UpsertJob(req)
}

// DeleteScheduledJob removes a scheduled job
func (a *App) DeleteScheduledJob(jobID string) error {
	return a.schedulerService.DeleteJob(jobID)
}

// ====================================================================================
// SETTINGS
// ====================================================================================

// SetProviderAPIKey stores the translation provider key encrypted and
// rebuilds the translation service with it
func (a *App) SetProviderAPIKey(apiKey string) error {
	if !crypto.IsInitialized() {
		return errors.New("encryption system not initialized - cannot save API key")
	}

	encrypted, err := crypto.Encrypt(apiKey)
	if err != nil {
		return err
	}

	setting := models.Setting{
		Key:       providerAPIKeySetting,
		Value:     encrypted,
		Encrypted: true,
	}
	if err := a.db.Save(&setting).Error; err != nil {
		return err
	}

	a.initTranslationService()
	log.Println("Translation provider API key updated")
	return nil
}

// HasProviderAPIKey reports whether a provider key is configured
func (a *App) HasProviderAPIKey() bool {
	return a.loadProviderAPIKey() != ""
}

// GetSetting returns a non-secret setting value, "" when unset
func (a *App) GetSetting(key string) (string, error) {
	var setting models.Setting
	if err := a.db.First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if setting.Encrypted {
		return "", errors.New("setting is encrypted")
	}
	return setting.Value, nil
}

// SetSetting stores a non-secret setting value
func (a *App) SetSetting(key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	return a.db.Save(&setting).Error
}

// ====================================================================================
// REQUEST/RESPONSE TYPES
// ====================================================================================

// CreateProfileRequest represents a request to create/update a site profile
type CreateProfileRequest struct {
	Name           string `json:"name"`
	SourceURL      string `json:"source_url"`
	SourceUsername string `json:"source_username"`
	SourcePassword string `json:"source_password"` // Plain text, will be encrypted
	TargetURL      string `json:"target_url"`
	TargetUsername string `json:"target_username"`
	TargetPassword string `json:"target_password"` // Plain text, will be encrypted
}

// TestConnectionRequest represents a connection test request
type TestConnectionRequest struct {
	URL         string `json:"url"`
	Username    string `json:"username"`
	AppPassword string `json:"app_password"`
}

// TestConnectionResponse represents the test result
type TestConnectionResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// TestConnection tests a WordPress connection without saving to database
func (a *App) TestConnection(req TestConnectionRequest) TestConnectionResponse {
	client := api.NewClient(req.URL, req.Username, req.AppPassword)

	// Test connection by fetching the authenticated user
	resp, err := client.Get("wp-json/wp/v2/users/me", map[string]string{"context": "edit"})
	if err != nil {
		return TestConnectionResponse{
			Success: false,
			Error:   fmt.Sprintf("Connection failed: %v", err),
		}
	}

	// Check HTTP status code
	if !resp.IsSuccess() {
		var errorMsg string
		switch resp.StatusCode() {
		case 401:
			errorMsg = "Invalid credentials (wrong username or application password)"
		case 404:
			errorMsg = "Site not found or REST API disabled"
		case 403:
			errorMsg = "Access forbidden (check user permissions)"
		default:
			errorMsg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status())
		}
		return TestConnectionResponse{
			Success: false,
			Error:   errorMsg,
		}
	}

	// Parse user info from response
	var userInfo struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	if err := json.Unmarshal(resp.Body(), &userInfo); err == nil {
		userName := userInfo.Name
		if userName == "" {
			userName = userInfo.Slug
		}
		if userName == "" {
			userName = "Connected User"
		}

		return TestConnectionResponse{
			Success:  true,
			UserName: userName,
		}
	}

	// Connection succeeded but couldn't parse user info
	return TestConnectionResponse{
		Success:  true,
		UserName: "Connected User",
	}
}
