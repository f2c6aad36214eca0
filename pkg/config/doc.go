// Package config provides configuration management for Kyosan.
//
// Configuration is read from a YAML file, decoded on top of the defaults
// returned by NewDefault, overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention KYOSAN_SECTION_FIELD:
//
//   - KYOSAN_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - KYOSAN_PIPELINE_DEFAULT_LEVEL overrides pipeline.default_level
//   - KYOSAN_GENERATOR_API_KEY overrides generator.api_key
//   - KYOSAN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The generator section also honours OPENROUTER_API_KEY, OPENROUTER_MODEL,
// OPENROUTER_SITE_URL and OPENROUTER_SITE_NAME when the KYOSAN_ variant is
// unset.
//
// # Global Configuration
//
// The run command stores the loaded configuration in a process-wide
// singleton (Initialize, GetConfig). Library packages never read the
// singleton; they receive the section they need as an argument.
//
// # Validation
//
// Validate collects every problem into a single ValidationError so that a
// broken file is reported in one pass.
package config
