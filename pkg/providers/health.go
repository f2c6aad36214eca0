package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// defaultHealthCheckInterval is used when the config leaves it unset.
const defaultHealthCheckInterval = 30 * time.Second

// StartHealthChecker starts a background goroutine that periodically checks
// the provider's health until ctx is cancelled or Close is called. Calling it
// again while a checker runs has no effect.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	p.checkerMu.Lock()
	defer p.checkerMu.Unlock()
	if p.checkerCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.checkerCancel = cancel
	p.checkerStopped = make(chan struct{})
	go p.runHealthChecker(ctx, p.checkerStopped)
}

func (p *HTTPProvider) stopHealthChecker() {
	p.checkerMu.Lock()
	cancel, stopped := p.checkerCancel, p.checkerStopped
	p.checkerCancel, p.checkerStopped = nil, nil
	p.checkerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		p.logger.Warn("health checker did not stop in time")
	}
}

// runHealthChecker is the main health checking loop.
func (p *HTTPProvider) runHealthChecker(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	interval := p.config.HealthCheckInterval
	if interval <= 0 {
		interval = defaultHealthCheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("health checker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("health checker stopped")
			return

		case <-ticker.C:
			p.performHealthCheck(ctx)

			// Back off while unhealthy
			if health := p.GetHealth(); !health.IsHealthy {
				next := calculateBackoff(health.ConsecutiveFailures, interval)
				ticker.Reset(next)
				p.logger.Debug("health check backoff",
					"consecutive_failures", health.ConsecutiveFailures,
					"next_check_in", next,
				)
			} else {
				ticker.Reset(interval)
			}
		}
	}
}

// performHealthCheck executes a single health check.
func (p *HTTPProvider) performHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := p.HealthCheck(checkCtx); err != nil {
		p.logger.Error("health check failed",
			"error", err,
			"latency", time.Since(start),
		)
		return
	}
	p.logger.Debug("health check passed", "latency", time.Since(start))
}

// HealthCheck performs one GET against BaseURL + HealthCheckPath without
// retries. The outcome updates the provider's health.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	url := strings.TrimSuffix(p.config.BaseURL, "/") + p.config.HealthCheckPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return &ProviderError{Provider: p.config.Name, Message: "health check failed", Cause: err}
	}
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.updateHealth(true, nil)
		return nil
	}
	herr := &ProviderError{
		Provider:   p.config.Name,
		StatusCode: resp.StatusCode,
		Message:    "health check returned " + resp.Status,
	}
	p.updateHealth(false, herr)
	return herr
}

// calculateBackoff calculates the backoff interval based on consecutive failures.
// It doubles per failure, capped at 10x the base interval and 5 minutes.
func calculateBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	multiplier := 10
	if consecutiveFailures < 4 {
		multiplier = 1 << uint(consecutiveFailures)
	}

	backoff := baseInterval * time.Duration(multiplier)
	if maxBackoff := 5 * time.Minute; backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
