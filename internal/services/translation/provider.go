package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultProviderBaseURL = "https://api.openai.com/v1"
	defaultModel           = "gpt-4o-mini"
	defaultMaxTokens       = 4000
	maxAttempts            = 3
)

const systemPrompt = "You are a professional translator. Translate the given text accurately " +
	"while preserving the original meaning, tone, and style. Return only the translated text " +
	"without any additional commentary."

// Translator is the provider-facing translation contract. The batch
// dispatcher and job controller depend on this, not on a concrete client.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string, opts Options) (*TranslatedResult, error)
	IsConfigured() bool
}

// ProviderConfig configures the machine translation provider client
type ProviderConfig struct {
	APIKey  string
	BaseURL string        // defaults to the OpenAI API
	Model   string        // defaults to gpt-4o-mini
	Timeout time.Duration // per-request HTTP timeout
}

// Provider calls an OpenAI-compatible chat completions endpoint to translate
// text. Each call retries up to 3 times with linear backoff.
type Provider struct {
	apiKey     string
	model      string
	http       *resty.Client
	retryDelay time.Duration
}

// NewProvider creates a translation provider client. An empty API key yields
// an unconfigured provider; calls will fail with a ConfigurationError.
func NewProvider(cfg ProviderConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultProviderBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Provider{
		apiKey:     cfg.APIKey,
		model:      model,
		http:       httpClient,
		retryDelay: 1 * time.Second,
	}
}

// IsConfigured reports whether an API key is present
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *TokenUsage `json:"usage"`
}

// Translate sends one translation request to the provider. Failed calls are
// retried up to maxAttempts times, waiting retryDelay * attempt between
// tries; the last error wins.
func (p *Provider) Translate(ctx context.Context, text, targetLang, sourceLang string, opts Options) (*TranslatedResult, error) {
	if !p.IsConfigured() {
		return nil, &ConfigurationError{Message: "translation provider API key not configured"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "text to translate is required"}
	}

	model := opts.Model
	if model == "" {
		model = p.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(text, sourceLang, targetLang, opts.Context, opts.preserveFormatting())},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := p.doRequest(ctx, payload)
		if err == nil {
			result.SourceLanguage = sourceLang
			result.TargetLanguage = targetLang
			return result, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			log.Printf("Translation attempt %d/%d failed, retrying: %v", attempt, maxAttempts, err)
			select {
			case <-time.After(time.Duration(attempt) * p.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

func (p *Provider) doRequest(ctx context.Context, payload chatRequest) (*TranslatedResult, error) {
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/chat/completions")
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("request failed: %v", err)}
	}

	if !resp.IsSuccess() {
		return nil, classifyProviderStatus(resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("malformed provider response: %v", err)}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, &ProviderError{Message: "no translation received from provider"}
	}

	model := parsed.Model
	if model == "" {
		model = payload.Model
	}

	return &TranslatedResult{
		TranslatedText: cleanTranslatedText(parsed.Choices[0].Message.Content),
		Model:          model,
		Usage:          parsed.Usage,
	}, nil
}

// buildPrompt assembles the user prompt. Context (if any) goes first, then
// the translation instruction, then an HTML preservation directive.
func buildPrompt(text, sourceLang, targetLang, contextHint string, preserveFormatting bool) string {
	var b strings.Builder

	if contextHint != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", contextHint)
	}

	fmt.Fprintf(&b, "Translate the following text from %s to %s:\n\n%s",
		languageName(sourceLang), languageName(targetLang), text)

	if preserveFormatting {
		b.WriteString("\n\nPreserve all HTML tags, formatting, and structure exactly as they appear in the original text.")
	}

	return b.String()
}

// languageName maps common language codes to display names for the prompt
func languageName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	case "ms":
		return "Malay"
	case "zh":
		return "Chinese"
	case "ta":
		return "Tamil"
	case "id":
		return "Indonesian"
	case "":
		return "the source language"
	default:
		return code
	}
}

var (
	leadingFenceRe  = regexp.MustCompile("(?s)^```.*?\n")
	trailingFenceRe = regexp.MustCompile("\n```$")
)

// cleanTranslatedText strips markdown code fences some models wrap the
// output in, then trims surrounding whitespace
func cleanTranslatedText(text string) string {
	text = leadingFenceRe.ReplaceAllString(text, "")
	text = trailingFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
