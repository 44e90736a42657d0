// Package config loads the service settings from defaults, an optional
// config.yaml and ENHANCE_* environment variables, then validates them.
//
// Load reads and validates; Validate re-checks a Config built in code.
// Components receive the sub-struct they need (ServerConfig, StorageConfig,
// EnhancerConfig, TaskConfig, RegistryConfig) rather than the whole Config.
package config
