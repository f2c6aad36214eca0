// Package providers is the transport layer for chat-completion backends.
//
// # Overview
//
// The compliance pipeline treats response generation as an optional
// collaborator. This package supplies the plumbing that collaborator needs:
// a provider-agnostic request and response shape, an HTTP client with
// retries and backoff, an error taxonomy callers can switch on, and health
// tracking with a simple circuit breaker.
//
// Backend adapters (see package openrouter) embed HTTPProvider and
// implement Provider.
//
// # Retries
//
// DoRequest retries network errors, 5xx responses and 429 responses with
// exponential backoff starting at Config.RetryBackoff. A 429 that carries a
// Retry-After header waits at least that long. 400, 401 and 403 are never
// retried; 401 and 403 surface as *AuthError.
//
// # Health
//
// Every request updates the provider's health. Three consecutive failures
// mark the provider unhealthy until the next success. StartHealthChecker
// runs periodic checks in the background, backing off while unhealthy.
//
// # Errors
//
//	resp, err := provider.Complete(ctx, req)
//	var authErr *providers.AuthError
//	if errors.As(err, &authErr) {
//	    // fix the API key, retrying will not help
//	}
package providers
