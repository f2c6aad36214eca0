package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 75 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1048576) // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Pipeline defaults
	DefaultProcessingLevel   = "standard"
	DefaultInactionPolicy    = "never"
	DefaultOutputSafety      = true
	DefaultSummaryAtDetailed = true

	// Rules defaults
	DefaultRulesDebounce     = 100 * time.Millisecond
	DefaultRulesGitBranch    = "main"
	DefaultRulesGitLocalPath = "data/rulesets"
	DefaultRulesGitPoll      = 5 * time.Minute
	DefaultRulesGitTimeout   = 30 * time.Second

	// Generator defaults
	DefaultGeneratorProvider    = "openrouter"
	DefaultGeneratorBaseURL     = "https://openrouter.ai/api/v1"
	DefaultGeneratorModel       = "openai/gpt-4o-mini"
	DefaultGeneratorSiteName    = "Kyosan"
	DefaultGeneratorTimeout     = 60 * time.Second
	DefaultGeneratorMaxRetries  = 2
	DefaultGeneratorMaxTokens   = 1024
	DefaultGeneratorTemperature = 0.7

	// Evidence defaults
	DefaultEvidenceEnabled              = true
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/decisions.db"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteWALMode        = true
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 90
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"

	// Conversations defaults
	DefaultConversationsEnabled = true
	DefaultConversationsBackend = "file"
	DefaultConversationsPath    = "data/conversations"

	// Reasoning defaults
	DefaultHarmThreshold = 0.7

	// Governance defaults
	DefaultGovernanceEnabled = true
	DefaultGovernanceBackend = "sqlite"
	DefaultGovernancePath    = "data/trace.db"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "kyosan"
	DefaultMetricsSubsystem   = "ethics"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "kyosan"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultDurationBuckets are the histogram buckets used for pipeline,
// plugin and generator durations (seconds).
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// NewDefault returns a Config with every default applied, including the
// defaults whose zero value is a meaningful setting: booleans, generator
// retries and temperature. LoadConfig unmarshals
// YAML on top of it so that omitted booleans keep their defaults.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Pipeline.OutputSafety = DefaultOutputSafety
	cfg.Pipeline.SummaryAtDetailed = DefaultSummaryAtDetailed
	cfg.Generator.MaxRetries = DefaultGeneratorMaxRetries
	cfg.Generator.Temperature = DefaultGeneratorTemperature
	cfg.Evidence.Enabled = DefaultEvidenceEnabled
	cfg.Evidence.SQLite.WALMode = DefaultEvidenceSQLiteWALMode
	cfg.Conversations.Enabled = DefaultConversationsEnabled
	cfg.Governance.Enabled = DefaultGovernanceEnabled
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(cfg)

	if cfg.Pipeline.DefaultLevel == "" {
		cfg.Pipeline.DefaultLevel = DefaultProcessingLevel
	}
	if cfg.Pipeline.InactionPolicy == "" {
		cfg.Pipeline.InactionPolicy = DefaultInactionPolicy
	}

	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = DefaultRulesDebounce
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultRulesGitBranch
	}
	if cfg.Rules.Git.LocalPath == "" {
		cfg.Rules.Git.LocalPath = DefaultRulesGitLocalPath
	}
	if cfg.Rules.Git.PollInterval == 0 {
		cfg.Rules.Git.PollInterval = DefaultRulesGitPoll
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultRulesGitTimeout
	}

	applyGeneratorDefaults(cfg)
	applyEvidenceDefaults(cfg)

	if cfg.Conversations.Backend == "" {
		cfg.Conversations.Backend = DefaultConversationsBackend
	}
	if cfg.Conversations.Path == "" {
		cfg.Conversations.Path = DefaultConversationsPath
	}

	if cfg.Reasoning.HarmThreshold == 0 {
		cfg.Reasoning.HarmThreshold = DefaultHarmThreshold
	}
	if cfg.Governance.Backend == "" {
		cfg.Governance.Backend = DefaultGovernanceBackend
	}
	if cfg.Governance.Path == "" {
		cfg.Governance.Path = DefaultGovernancePath
	}

	applyTelemetryDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyGeneratorDefaults(cfg *Config) {
	g := &cfg.Generator
	if g.Provider == "" {
		g.Provider = DefaultGeneratorProvider
	}
	if g.BaseURL == "" {
		g.BaseURL = DefaultGeneratorBaseURL
	}
	if g.Model == "" {
		g.Model = DefaultGeneratorModel
	}
	if g.SiteName == "" {
		g.SiteName = DefaultGeneratorSiteName
	}
	if g.Timeout == 0 {
		g.Timeout = DefaultGeneratorTimeout
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = DefaultGeneratorMaxTokens
	}
}

func applyEvidenceDefaults(cfg *Config) {
	e := &cfg.Evidence
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if e.SQLite.MaxOpenConns == 0 {
		e.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if e.SQLite.MaxIdleConns == 0 {
		e.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if e.Recorder.AsyncBuffer == 0 {
		e.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if e.Recorder.WriteTimeout == 0 {
		e.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if e.Retention.Days == 0 {
		e.Retention.Days = DefaultEvidenceRetentionDays
	}
	if e.Retention.PruneSchedule == "" {
		e.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}
}

func applyTelemetryDefaults(cfg *Config) {
	t := &cfg.Telemetry
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = DefaultDurationBuckets
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
