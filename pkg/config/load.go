package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefault, so omitted fields keep their
// defaults. The result is validated. Environment variables are not applied;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention KYOSAN_SECTION_FIELD (e.g., KYOSAN_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// A missing file is not an error: the defaults are used instead, so the
// service can be configured from the environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = NewDefault()
	} else {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("KYOSAN_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	envDuration("KYOSAN_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("KYOSAN_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("KYOSAN_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	// Pipeline overrides
	if val := os.Getenv("KYOSAN_PIPELINE_DEFAULT_LEVEL"); val != "" {
		cfg.Pipeline.DefaultLevel = strings.ToLower(strings.TrimSpace(val))
	}
	envBool("KYOSAN_PIPELINE_OUTPUT_SAFETY", &cfg.Pipeline.OutputSafety)
	if val := os.Getenv("KYOSAN_PIPELINE_INACTION_POLICY"); val != "" {
		cfg.Pipeline.InactionPolicy = val
	}

	// Rules overrides
	if val := os.Getenv("KYOSAN_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	envBool("KYOSAN_RULES_WATCH", &cfg.Rules.Watch)
	if val := os.Getenv("KYOSAN_RULES_GIT_REPOSITORY"); val != "" {
		cfg.Rules.Git.Repository = val
		cfg.Rules.Git.Enabled = true
	}
	if val := os.Getenv("KYOSAN_RULES_GIT_TOKEN"); val != "" {
		cfg.Rules.Git.Token = val
	}

	applyGeneratorEnvOverrides(cfg)

	// Evidence overrides
	envBool("KYOSAN_EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	if val := os.Getenv("KYOSAN_EVIDENCE_BACKEND"); val != "" {
		cfg.Evidence.Backend = val
	}
	if val := os.Getenv("KYOSAN_EVIDENCE_SQLITE_PATH"); val != "" {
		cfg.Evidence.SQLite.Path = val
	}
	if val := os.Getenv("KYOSAN_EVIDENCE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Evidence.Retention.Days = i
		}
	}

	// Conversations overrides
	if val := os.Getenv("KYOSAN_CONVERSATIONS_BACKEND"); val != "" {
		cfg.Conversations.Backend = val
	}
	if val := os.Getenv("KYOSAN_CONVERSATIONS_PATH"); val != "" {
		cfg.Conversations.Path = val
	}

	// Reasoning overrides
	if val := os.Getenv("KYOSAN_REASONING_HARM_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Reasoning.HarmThreshold = f
		}
	}

	// Governance overrides
	envBool("KYOSAN_GOVERNANCE_ENABLED", &cfg.Governance.Enabled)
	if val := os.Getenv("KYOSAN_GOVERNANCE_BACKEND"); val != "" {
		cfg.Governance.Backend = val
	}
	if val := os.Getenv("KYOSAN_GOVERNANCE_PATH"); val != "" {
		cfg.Governance.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("KYOSAN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("KYOSAN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	envBool("KYOSAN_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("KYOSAN_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	if val := os.Getenv("KYOSAN_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// applyGeneratorEnvOverrides applies KYOSAN_GENERATOR_* variables, falling
// back to the OPENROUTER_* names used by existing deployments.
func applyGeneratorEnvOverrides(cfg *Config) {
	g := &cfg.Generator

	envBool("KYOSAN_GENERATOR_ENABLED", &g.Enabled)
	if val := firstEnv("KYOSAN_GENERATOR_API_KEY", "OPENROUTER_API_KEY"); val != "" {
		g.APIKey = val
	}
	if val := firstEnv("KYOSAN_GENERATOR_MODEL", "OPENROUTER_MODEL"); val != "" {
		g.Model = val
	}
	if val := firstEnv("KYOSAN_GENERATOR_SITE_URL", "OPENROUTER_SITE_URL"); val != "" {
		g.SiteURL = val
	}
	if val := firstEnv("KYOSAN_GENERATOR_SITE_NAME", "OPENROUTER_SITE_NAME"); val != "" {
		g.SiteName = val
	}
	if val := os.Getenv("KYOSAN_GENERATOR_BASE_URL"); val != "" {
		g.BaseURL = val
	}
	envDuration("KYOSAN_GENERATOR_TIMEOUT", &g.Timeout)
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
