package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client represents a WordPress REST API client
type Client struct {
	baseURL     string
	username    string
	appPassword string
	http        *resty.Client
	authorCache *lruCache // Cache for author display names
}

// NewClient creates a new WordPress API client authenticated with an
// application password
func NewClient(baseURL, username, appPassword string) *Client {
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		authorCache: newLRUCache(500),
	}

	client.http = resty.New().
		SetHeader("User-Agent", "contentsync-desktop/1.0").
		SetBasicAuth(username, appPassword).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	return client
}

// Get performs a GET request against the WordPress REST API
func (c *Client) Get(endpoint string, params map[string]string) (*resty.Response, error) {
	url := c.buildURL(endpoint)
	req := c.http.R()

	if params != nil {
		req.SetQueryParams(params)
	}

	return req.Get(url)
}

// Post performs a POST request against the WordPress REST API
func (c *Client) Post(endpoint string, payload interface{}) (*resty.Response, error) {
	url := c.buildURL(endpoint)
	return c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
}

// Put performs a PUT request against the WordPress REST API
func (c *Client) Put(endpoint string, payload interface{}) (*resty.Response, error) {
	url := c.buildURL(endpoint)
	return c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(url)
}

// Delete performs a DELETE request against the WordPress REST API
func (c *Client) Delete(endpoint string, params map[string]string) (*resty.Response, error) {
	url := c.buildURL(endpoint)
	req := c.http.R()

	if params != nil {
		req.SetQueryParams(params)
	}

	return req.Delete(url)
}

// GetAuthorName retrieves the display name of a WordPress user (with caching)
func (c *Client) GetAuthorName(userID string) string {
	if name, ok := c.authorCache.Get(userID); ok {
		return name
	}

	endpoint := fmt.Sprintf("wp-json/wp/v2/users/%s", userID)
	params := map[string]string{"_fields": "id,name,slug"}

	resp, err := c.Get(endpoint, params)
	if err != nil || !resp.IsSuccess() {
		// Fallback to ID if fetch fails
		c.authorCache.Put(userID, userID)
		return userID
	}

	var result struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		c.authorCache.Put(userID, userID)
		return userID
	}

	name := result.Name
	if name == "" {
		name = result.Slug
	}
	if name == "" {
		name = userID
	}

	c.authorCache.Put(userID, name)
	return name
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}
