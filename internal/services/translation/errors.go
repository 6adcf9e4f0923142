package translation

import "fmt"

// ValidationError represents invalid input to job creation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationError indicates the translation provider is not configured
// (missing API key)
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NotFoundError indicates an unknown resource (job or post) was requested
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// AuthenticationError indicates the provider rejected our credentials (HTTP 401)
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// RateLimitError indicates the provider is throttling us (HTTP 429)
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// MalformedRequestError indicates the provider rejected the request shape (HTTP 400)
type MalformedRequestError struct {
	Message string
}

func (e *MalformedRequestError) Error() string {
	return e.Message
}

// ProviderError is any other provider-side failure
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("translation provider error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("translation provider error: %s", e.Message)
}

// classifyProviderStatus maps a provider HTTP status code to a typed error
func classifyProviderStatus(statusCode int, body string) error {
	switch statusCode {
	case 401:
		return &AuthenticationError{Message: "invalid translation provider API key"}
	case 429:
		return &RateLimitError{Message: "translation provider rate limit exceeded"}
	case 400:
		return &MalformedRequestError{Message: fmt.Sprintf("invalid request to translation provider: %s", body)}
	default:
		return &ProviderError{StatusCode: statusCode, Message: body}
	}
}

// errorCode returns a stable machine-readable code for an error, used in
// persisted error rows and progress events
func errorCode(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "VALIDATION_ERROR"
	case *ConfigurationError:
		return "INVALID_API_KEY"
	case *AuthenticationError:
		return "INVALID_API_KEY"
	case *RateLimitError:
		return "RATE_LIMIT_EXCEEDED"
	case *MalformedRequestError:
		return "INVALID_REQUEST"
	case *NotFoundError:
		return "NOT_FOUND"
	case *ProviderError:
		return "TRANSLATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
