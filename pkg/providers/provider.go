package providers

import "context"

// Provider is implemented by every chat-completion backend.
//
// All methods that perform I/O accept a context.Context and must return
// promptly when it is cancelled.
type Provider interface {
	// Complete sends a completion request and returns the normalized
	// response. Transient failures are retried before an error is returned.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck sends a lightweight request to verify the backend is
	// reachable.
	HealthCheck(ctx context.Context) error

	// GetName returns the provider's configured name.
	GetName() string

	// IsHealthy reports the current health status.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() ProviderHealth

	// Close releases idle connections and stops the health checker.
	Close() error
}
