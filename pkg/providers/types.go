package providers

import "time"

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// Message is a single message in a conversation.
type Message struct {
	// Role identifies the sender (system, user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier. Empty means the provider's default.
	Model string

	// Messages is the conversation, oldest first.
	Messages []Message

	// MaxTokens caps the completion length. Zero leaves it to the backend.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Nil leaves it to the
	// backend.
	Temperature *float64
}

// Validate checks the request before it is sent.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	for _, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return &ValidationError{Field: "messages.role", Message: "unsupported role " + m.Role}
		}
	}
	if r.MaxTokens < 0 {
		return &ValidationError{Field: "max_tokens", Message: "must be non-negative"}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &ValidationError{Field: "temperature", Message: "must be between 0.0 and 2.0"}
	}
	return nil
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	// ID is the backend's identifier for the completion.
	ID string

	// Model is the model that produced the completion.
	Model string

	// Content is the generated text.
	Content string

	// FinishReason explains why generation stopped.
	FinishReason string

	Usage TokenUsage

	// Latency is the end-to-end time including retries.
	Latency time.Duration
}

// ProviderHealth tracks the health of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last health update
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// ProviderConfig contains the transport settings of one provider.
type ProviderConfig struct {
	// Name is the provider identifier (e.g., "openrouter")
	Name string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key
	APIKey string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// RetryBackoff is the delay before the first retry; later retries
	// double it. Default: 1s
	RetryBackoff time.Duration

	// HealthCheckPath is appended to BaseURL for health checks.
	// Default: "/models"
	HealthCheckPath string

	// HealthCheckInterval is how often to run background health checks
	HealthCheckInterval time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}
