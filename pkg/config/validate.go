package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateGenerator(&cfg.Generator)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateConversations(&cfg.Conversations)...)
	errs = append(errs, validateReasoning(&cfg.Reasoning)...)
	errs = append(errs, validateGovernance(&cfg.Governance)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: must be host:port", cfg.ListenAddress),
		})
	}

	durations := map[string]time.Duration{
		"server.read_timeout":     cfg.ReadTimeout,
		"server.write_timeout":    cfg.WriteTimeout,
		"server.idle_timeout":     cfg.IdleTimeout,
		"server.request_timeout":  cfg.RequestTimeout,
		"server.shutdown_timeout": cfg.ShutdownTimeout,
	}
	for field, d := range durations {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "timeout must be non-negative"})
		}
	}

	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError

	switch cfg.DefaultLevel {
	case "basic", "standard", "detailed":
	default:
		errs = append(errs, FieldError{
			Field:   "pipeline.default_level",
			Message: fmt.Sprintf("invalid processing level %q: must be 'basic', 'standard', or 'detailed'", cfg.DefaultLevel),
		})
	}

	if cfg.InactionPolicy != "never" && cfg.InactionPolicy != "ruleset" {
		errs = append(errs, FieldError{
			Field:   "pipeline.inaction_policy",
			Message: fmt.Sprintf("invalid inaction policy %q: must be 'never' or 'ruleset'", cfg.InactionPolicy),
		})
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.Path == "" && !cfg.Git.Enabled {
		errs = append(errs, FieldError{Field: "rules.watch", Message: "watch requires rules.path"})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{Field: "rules.debounce_interval", Message: "debounce interval must be non-negative"})
	}

	if cfg.Git.Enabled {
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{Field: "rules.git.repository", Message: "repository is required when git mode is enabled"})
		}
		if cfg.Git.Branch == "" {
			errs = append(errs, FieldError{Field: "rules.git.branch", Message: "branch is required when git mode is enabled"})
		}
		if cfg.Git.Timeout <= 0 {
			errs = append(errs, FieldError{Field: "rules.git.timeout", Message: "timeout must be positive"})
		}
	}

	return errs
}

func validateGenerator(cfg *GeneratorConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if cfg.Provider != "openrouter" {
		errs = append(errs, FieldError{
			Field:   "generator.provider",
			Message: fmt.Sprintf("unsupported provider %q: must be 'openrouter'", cfg.Provider),
		})
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "generator.base_url",
			Message: fmt.Sprintf("invalid base URL %q", cfg.BaseURL),
		})
	}
	if cfg.Model == "" {
		errs = append(errs, FieldError{Field: "generator.model", Message: "model is required when the generator is enabled"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "generator.timeout", Message: "timeout must be positive"})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "generator.max_retries", Message: "max retries must be non-negative"})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, FieldError{Field: "generator.temperature", Message: "temperature must be between 0.0 and 2.0"})
	}

	return errs
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "evidence.sqlite.max_open_conns", Message: "max open conns must be at least 1"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{Field: "evidence.recorder.async_buffer", Message: "async buffer must be at least 1"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.Days > 3650 {
		errs = append(errs, FieldError{
			Field:   "evidence.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.max_records", Message: "max records must be non-negative"})
	}

	return errs
}

func validateConversations(cfg *ConversationsConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError
	if cfg.Backend != "file" && cfg.Backend != "sqlite" {
		errs = append(errs, FieldError{
			Field:   "conversations.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'file' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "conversations.path", Message: "path is required"})
	}
	return errs
}

func validateReasoning(cfg *ReasoningConfig) []FieldError {
	if cfg.HarmThreshold <= 0 || cfg.HarmThreshold > 1 {
		return []FieldError{{
			Field:   "reasoning.harm_threshold",
			Message: fmt.Sprintf("must be in (0, 1], got %v", cfg.HarmThreshold),
		}}
	}
	return nil
}

func validateGovernance(cfg *GovernanceConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError
	if cfg.Backend != "memory" && cfg.Backend != "sqlite" {
		errs = append(errs, FieldError{
			Field:   "governance.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "governance.path", Message: "path is required for sqlite backend"})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.CheckTimeout < 0 || cfg.Health.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be between 0 and 60s",
		})
	}

	return errs
}
