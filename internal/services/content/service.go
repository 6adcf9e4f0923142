package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"contentsync-desktop/internal/api"
	"contentsync-desktop/internal/crypto"
	"contentsync-desktop/internal/models"

	"gorm.io/gorm"
)

// Service fetches posts from source WordPress sites, mirrors them locally
// and publishes translations to target sites
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// wpPost mirrors the fields we consume from the WordPress REST posts endpoint
type wpPost struct {
	ID       int    `json:"id"`
	Date     string `json:"date"`
	Modified string `json:"modified"`
	Link     string `json:"link"`
	Type     string `json:"type"`
	Title    struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Author   int `json:"author"`
	Embedded struct {
		Author []struct {
			Name string `json:"name"`
		} `json:"author"`
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
		Terms [][]struct {
			Name     string `json:"name"`
			Taxonomy string `json:"taxonomy"`
		} `json:"wp:term"`
	} `json:"_embedded"`
}

// FetchContent pulls one page of posts from the profile's source site and
// upserts them into the local mirror
func (s *Service) FetchContent(req FetchRequest) (*FetchResponse, error) {
	profile, err := s.loadProfile(req.ProfileID)
	if err != nil {
		return nil, err
	}

	client, err := s.sourceClient(profile)
	if err != nil {
		return nil, err
	}

	postType := req.PostType
	if postType == "" {
		postType = "post"
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	params := map[string]string{
		"per_page": strconv.Itoa(limit),
		"page":     strconv.Itoa(page),
		"_embed":   "true",
		"orderby":  "date",
		"order":    "desc",
	}
	if req.Search != "" {
		params["search"] = req.Search
	}
	if req.After != "" {
		params["after"] = req.After
	}
	if req.Before != "" {
		params["before"] = req.Before
	}
	if len(req.Categories) > 0 {
		params["categories"] = joinInts(req.Categories)
	}
	if len(req.Tags) > 0 {
		params["tags"] = joinInts(req.Tags)
	}
	if len(req.Statuses) > 0 {
		params["status"] = strings.Join(req.Statuses, ",")
	}

	endpoint := fmt.Sprintf("wp-json/wp/v2/%ss", postType)
	resp, err := client.Get(endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content from %s: %w", profile.SourceURL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("source site returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	var wpPosts []wpPost
	if err := json.Unmarshal(resp.Body(), &wpPosts); err != nil {
		return nil, fmt.Errorf("failed to parse source site response: %w", err)
	}

	total, _ := strconv.ParseInt(resp.Header().Get("X-WP-Total"), 10, 64)

	siteID := siteIdentifier(profile.SourceURL)
	stored := make([]models.Post, 0, len(wpPosts))
	for _, wp := range wpPosts {
		post, err := s.storePost(client, siteID, postType, wp)
		if err != nil {
			log.Printf("Failed to store post %d from %s: %v", wp.ID, siteID, err)
			continue
		}
		stored = append(stored, *post)
	}

	log.Printf("Fetched %d posts from %s (page %d, total %d)", len(stored), siteID, page, total)

	return &FetchResponse{
		Posts: stored,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: int64(page*limit) < total,
		},
	}, nil
}

// storePost upserts one source post into the local mirror, keyed by
// (source site, source post ID). Re-fetching refreshes content but keeps
// the local workflow status.
func (s *Service) storePost(client *api.Client, siteID, postType string, wp wpPost) (*models.Post, error) {
	title := stripHTML(wp.Title.Rendered)
	content := wp.Content.Rendered
	excerpt := stripHTML(wp.Excerpt.Rendered)

	author := ""
	if len(wp.Embedded.Author) > 0 {
		author = wp.Embedded.Author[0].Name
	}
	if author == "" && wp.Author != 0 {
		author = client.GetAuthorName(strconv.Itoa(wp.Author))
	}

	featuredImage := ""
	if len(wp.Embedded.FeaturedMedia) > 0 {
		featuredImage = wp.Embedded.FeaturedMedia[0].SourceURL
	}

	meta := postMetadata{WPID: wp.ID, Link: wp.Link}
	for _, group := range wp.Embedded.Terms {
		for _, term := range group {
			switch term.Taxonomy {
			case "category":
				meta.Categories = append(meta.Categories, term.Name)
			case "post_tag":
				meta.Tags = append(meta.Tags, term.Name)
			}
		}
	}
	metaJSON, _ := json.Marshal(meta)

	sourcePostID := strconv.Itoa(wp.ID)

	var existing models.Post
	err := s.db.Where("source_site_id = ? AND source_post_id = ?", siteID, sourcePostID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		post := models.Post{
			SourceSiteID:     siteID,
			SourcePostID:     sourcePostID,
			SourceURL:        wp.Link,
			Title:            title,
			Content:          content,
			Excerpt:          excerpt,
			Author:           author,
			Status:           "fetched",
			PostType:         postType,
			PublishDate:      wp.Date,
			ModifiedDate:     wp.Modified,
			WordCount:        wordCount(content),
			FeaturedImageURL: featuredImage,
			Metadata:         string(metaJSON),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		return &post, nil
	}
	if err != nil {
		return nil, err
	}

	existing.Title = title
	existing.Content = content
	existing.Excerpt = excerpt
	existing.Author = author
	existing.PublishDate = wp.Date
	existing.ModifiedDate = wp.Modified
	existing.WordCount = wordCount(content)
	existing.FeaturedImageURL = featuredImage
	existing.Metadata = string(metaJSON)
	if err := s.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// ListContent queries the local mirror
func (s *Service) ListContent(req ListRequest) (*ListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = 20
	}

	query := s.db.Model(&models.Post{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("title LIKE ? OR excerpt LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	var posts []models.Post
	if err := query.Order("publish_date DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &ListResponse{
		Posts: posts,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: int64(page*limit) < total,
		},
	}, nil
}

// GetContentPreview returns a post with its most recent translation
func (s *Service) GetContentPreview(postID string) (*Preview, error) {
	var post models.Post
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	preview := &Preview{Post: post}

	var translation models.PostTranslation
	err := s.db.Where("post_id = ?", postID).
		Order("created_at DESC").
		First(&translation).Error
	if err == nil {
		preview.Translation = &translation
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load translation: %w", err)
	}

	return preview, nil
}

// PublishTranslation pushes a post's translation to the profile's target
// site and marks the local post published
func (s *Service) PublishTranslation(req PublishRequest) (*PublishResponse, error) {
	profile, err := s.loadProfile(req.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile.TargetURL == "" {
		return nil, fmt.Errorf("profile %q has no target site configured", profile.Name)
	}

	var post models.Post
	if err := s.db.First(&post, "id = ?", req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	query := s.db.Where("post_id = ?", req.PostID)
	if req.JobID != "" {
		query = query.Where("translation_job_id = ?", req.JobID)
	}
	var translation models.PostTranslation
	if err := query.Order("created_at DESC").First(&translation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no translation found for post %s", req.PostID)
		}
		return nil, fmt.Errorf("failed to load translation: %w", err)
	}

	client, err := s.targetClient(profile)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = "draft"
	}

	payload := map[string]interface{}{
		"title":   translation.TranslatedTitle,
		"content": translation.TranslatedContent,
		"status":  status,
	}
	if translation.TranslatedExcerpt != "" {
		payload["excerpt"] = translation.TranslatedExcerpt
	}

	resp, err := client.Post("wp-json/wp/v2/posts", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to publish to %s: %w", profile.TargetURL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("target site returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	var created struct {
		ID     int    `json:"id"`
		Link   string `json:"link"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("failed to parse target site response: %w", err)
	}

	if err := s.db.Model(&post).Update("status", "published").Error; err != nil {
		log.Printf("Failed to mark post %s published: %v", post.ID, err)
	}

	log.Printf("Published post %s to %s as target post %d", post.ID, profile.TargetURL, created.ID)

	return &PublishResponse{
		TargetPostID: created.ID,
		TargetURL:    created.Link,
		Status:       created.Status,
	}, nil
}

func (s *Service) loadProfile(profileID string) (*models.SiteProfile, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profileId is required")
	}
	var profile models.SiteProfile
	if err := s.db.First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("site profile not found")
		}
		return nil, fmt.Errorf("failed to load site profile: %w", err)
	}
	return &profile, nil
}

func (s *Service) sourceClient(profile *models.SiteProfile) (*api.Client, error) {
	password, err := crypto.DecryptPassword(profile.SourcePasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt source credentials: %w", err)
	}
	return api.NewClient(profile.SourceURL, profile.SourceUsername, password), nil
}

func (s *Service) targetClient(profile *models.SiteProfile) (*api.Client, error) {
	password, err := crypto.DecryptPassword(profile.TargetPasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt target credentials: %w", err)
	}
	return api.NewClient(profile.TargetURL, profile.TargetUsername, password), nil
}

var htmlTagRe = regexp.MustCompile("<[^>]*>")

// stripHTML removes markup and collapses whitespace, for titles and excerpts
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&#8217;", "'")
	s = strings.ReplaceAll(s, "&#8216;", "'")
	s = strings.ReplaceAll(s, "&#8220;", "\"")
	s = strings.ReplaceAll(s, "&#8221;", "\"")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// wordCount counts words in rendered HTML content
func wordCount(html string) int {
	return len(strings.Fields(stripHTML(html)))
}

// siteIdentifier normalizes a site URL to a stable host-based key
func siteIdentifier(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(rawURL, "/")
	}
	return parsed.Host
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
