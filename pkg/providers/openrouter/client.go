package openrouter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/providers"
)

// DefaultSystemPrompt frames every generated response.
const DefaultSystemPrompt = "You are the Kyosan Ethics Engine, a system that provides careful ethical analysis. " +
	"Give detailed, thoughtful responses that consider multiple ethical perspectives, including the four laws: " +
	"Zeroth Law, no harm to humanity, or by inaction allow humanity to come to harm; First Law, no harm to humans; " +
	"Second Law, follow instructions unless they conflict with the First Law; Third Law, preserve system integrity."

// Context keys read by Generate.
const (
	// FollowUpKey marks a request that continues an earlier conversation.
	FollowUpKey = "follow_up"
	// HistoryKey holds the earlier messages as []providers.Message.
	HistoryKey = "history"
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	SiteURL  string
	SiteName string

	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string

	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MaxTokens    int

	// Temperature is sent when set. Nil leaves the model default.
	Temperature *float64
}

// FromConfig maps the generator section of the service configuration.
func FromConfig(cfg config.GeneratorConfig) Config {
	temperature := cfg.Temperature
	return Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		SiteURL:     cfg.SiteURL,
		SiteName:    cfg.SiteName,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		MaxTokens:   cfg.MaxTokens,
		Temperature: &temperature,
	}
}

// Client talks to the OpenRouter chat-completions API. It implements
// providers.Provider and compliance.Generator.
type Client struct {
	*providers.HTTPProvider

	cfg     Config
	headers map[string]string
	logger  *slog.Logger
}

var (
	_ providers.Provider   = (*Client)(nil)
	_ compliance.Generator = (*Client)(nil)
)

// New creates a client. An API key and a model are required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &providers.ConfigError{Provider: "openrouter", Field: "api_key", Message: "API key is required"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &providers.ConfigError{Provider: "openrouter", Field: "model", Message: "model is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultGeneratorBaseURL
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	headers := map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
	}
	if cfg.SiteURL != "" {
		headers["HTTP-Referer"] = cfg.SiteURL
	}
	if cfg.SiteName != "" {
		headers["X-Title"] = cfg.SiteName
	}

	return &Client{
		HTTPProvider: providers.NewHTTPProvider(providers.ProviderConfig{
			Name:                "openrouter",
			BaseURL:             cfg.BaseURL,
			APIKey:              cfg.APIKey,
			Timeout:             cfg.Timeout,
			MaxRetries:          cfg.MaxRetries,
			RetryBackoff:        cfg.RetryBackoff,
			HealthCheckInterval: time.Minute,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}),
		cfg:     cfg,
		headers: headers,
		logger:  slog.Default().With("component", "openrouter"),
	}, nil
}

// Model returns the default model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends req to POST {base}/chat/completions.
func (c *Client) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	start := time.Now()
	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"

	var raw chatResponse
	if err := c.DoJSONRequest(ctx, http.MethodPost, url, toChatRequest(req), &raw, c.headers); err != nil {
		return nil, err
	}

	resp, err := fromChatResponse(c.GetName(), &raw)
	if err != nil {
		return nil, err
	}
	resp.Latency = time.Since(start)

	c.logger.Debug("completion received",
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"latency", resp.Latency,
	)
	return resp, nil
}

// Generate produces a response for an approved input. Follow-up requests
// carry the earlier conversation under HistoryKey.
func (c *Client) Generate(ctx context.Context, req compliance.GenerationRequest) (string, error) {
	messages := []providers.Message{{Role: providers.RoleSystem, Content: c.cfg.SystemPrompt}}
	if followUp(req.Context) {
		messages = append(messages, history(req.Context)...)
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: req.Input})

	creq := &providers.CompletionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}
	if c.cfg.Temperature != nil {
		t := *c.cfg.Temperature
		creq.Temperature = &t
	}

	resp, err := c.Complete(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	return resp.Content, nil
}

func followUp(evalCtx map[string]any) bool {
	switch v := evalCtx[FollowUpKey].(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return false
	}
}

// history keeps only user and assistant turns with content.
func history(evalCtx map[string]any) []providers.Message {
	prior, _ := evalCtx[HistoryKey].([]providers.Message)
	out := make([]providers.Message, 0, len(prior))
	for _, m := range prior {
		if (m.Role == providers.RoleUser || m.Role == providers.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			out = append(out, m)
		}
	}
	return out
}
