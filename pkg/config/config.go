package config

import "time"

// Config is the root configuration structure for Kyosan.
// It contains all configuration sections for the HTTP server, the compliance
// pipeline, the plugin registry, the response generator, the decision audit
// trail, conversation storage, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Pipeline contains compliance pipeline and orchestration settings.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Rules contains the ruleset source configuration (file, directory, or
	// git repository) and hot-reload settings.
	Rules RulesConfig `yaml:"rules"`

	// Plugins contains plugin registry configuration.
	Plugins PluginsConfig `yaml:"plugins"`

	// Generator contains configuration for the response-generation backend.
	Generator GeneratorConfig `yaml:"generator"`

	// Evidence contains configuration for the decision audit trail.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Conversations contains conversation persistence configuration.
	Conversations ConversationsConfig `yaml:"conversations"`

	// Reasoning contains harm prediction and dilemma analysis settings.
	Reasoning ReasoningConfig `yaml:"reasoning"`

	// Governance contains ruleset upgrade governance configuration.
	Governance GovernanceConfig `yaml:"governance"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Must exceed the generator timeout.
	// Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds a single API request end to end.
	// Default: 75s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps the request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// PipelineConfig contains compliance pipeline and orchestration settings.
type PipelineConfig struct {
	// DefaultLevel is the processing level used when a request does not
	// name one.
	// Options: "basic", "standard", "detailed"
	// Default: "standard"
	DefaultLevel string `yaml:"default_level"`

	// OutputSafety enables the output safety filter on generated text.
	// Default: true
	OutputSafety bool `yaml:"output_safety"`

	// InactionPolicy decides whether refusing to act would allow
	// humanity-level harm.
	// Options: "never", "ruleset" (match the ruleset's inaction phrases)
	// Default: "never"
	InactionPolicy string `yaml:"inaction_policy"`

	// SummaryAtDetailed appends the ethical analysis summary to responses
	// produced at the detailed level.
	// Default: true
	SummaryAtDetailed bool `yaml:"summary_at_detailed"`
}

// RulesConfig configures where the ruleset is loaded from.
type RulesConfig struct {
	// Path is a ruleset YAML file or a directory of them. Empty uses the
	// built-in ruleset.
	Path string `yaml:"path"`

	// Watch enables hot reload of Path.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Git configures a git repository as the ruleset source.
	Git GitRulesConfig `yaml:"git"`
}

// GitRulesConfig configures git-backed ruleset loading.
type GitRulesConfig struct {
	// Enabled determines if git mode is active. Path is then relative to the
	// repository root.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository URL (HTTPS).
	// Example: "https://github.com/company/rulesets.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Token for HTTPS authentication. Optional for public repositories.
	Token string `yaml:"token"`

	// LocalPath where the repository is cloned.
	// Default: "data/rulesets"
	LocalPath string `yaml:"local_path"`

	// PollInterval between pulls. Zero disables polling.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout for clone and pull operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// PluginsConfig configures the plugin registry.
type PluginsConfig struct {
	// Disabled lists plugin names that are registered but never
	// instantiated. They are recorded as available.
	Disabled []string `yaml:"disabled"`

	// Settings holds per-plugin configuration passed to Configure.
	Settings map[string]map[string]any `yaml:"settings"`
}

// GeneratorConfig configures the response-generation backend.
type GeneratorConfig struct {
	// Enabled controls whether generated responses are requested at all.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Provider names the backend.
	// Options: "openrouter"
	// Default: "openrouter"
	Provider string `yaml:"provider"`

	// BaseURL is the API base URL.
	// Default: "https://openrouter.ai/api/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the backend.
	// Falls back to OPENROUTER_API_KEY.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier.
	// Default: "openai/gpt-4o-mini"
	Model string `yaml:"model"`

	// SiteURL is sent as the HTTP-Referer header.
	SiteURL string `yaml:"site_url"`

	// SiteName is sent as the X-Title header.
	// Default: "Kyosan"
	SiteName string `yaml:"site_name"`

	// Timeout bounds a single completion request.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retry attempts.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// MaxTokens caps the completion length.
	// Default: 1024
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature.
	// Default: 0.7
	Temperature float64 `yaml:"temperature"`
}

// EvidenceConfig contains configuration for the decision audit trail.
type EvidenceConfig struct {
	// Enabled controls whether decision records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/decisions.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for enqueueing and writing a record.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain decision records.
	// 0 means keep forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath is a directory that pruned records are exported to as
	// JSON before deletion. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// ConversationsConfig configures conversation persistence.
type ConversationsConfig struct {
	// Enabled controls whether the conversation API is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the store.
	// Options: "file", "sqlite"
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path is the directory holding conversation files, or the
	// conversations.db database for the sqlite backend.
	// Default: "data/conversations"
	Path string `yaml:"path"`
}

// ReasoningConfig contains harm prediction and dilemma analysis settings.
type ReasoningConfig struct {
	// HarmThreshold is the harm likelihood index at or above which a
	// request is assessed as blocked. Must be in (0, 1].
	// Default: 0.7
	HarmThreshold float64 `yaml:"harm_threshold"`
}

// GovernanceConfig contains ruleset upgrade governance configuration.
type GovernanceConfig struct {
	// Enabled controls whether the upgrade API is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the TRACE register store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file for the sqlite backend.
	// Default: "data/trace.db"
	Path string `yaml:"path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "kyosan"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "ethics"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for durations (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "kyosan"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
