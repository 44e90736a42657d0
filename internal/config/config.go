package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Enhancer EnhancerConfig `mapstructure:"enhancer" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Registry RegistryConfig `mapstructure:"registry" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// StorageConfig controls where artifacts live and how large uploads may be.
type StorageConfig struct {
	Dir            string `mapstructure:"dir" validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
}

// EnhancerConfig describes the external enhancement tooling.
type EnhancerConfig struct {
	PythonBin     string        `mapstructure:"python_bin" validate:"required"`
	PipBin        string        `mapstructure:"pip_bin" validate:"required"`
	AutoProvision bool          `mapstructure:"auto_provision"`
	Packages      []string      `mapstructure:"packages" validate:"required,min=1,dive,required"`
	ModelURL      string        `mapstructure:"model_url" validate:"required,url"`
	Scale         int           `mapstructure:"scale" validate:"required,oneof=2 4"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// ProvisionTimeout bounds the import check and package install. Zero means Timeout.
	ProvisionTimeout time.Duration `mapstructure:"provision_timeout" validate:"gte=0"`
}

// TaskConfig sizes the background worker pool that runs enhancements.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// RegistryConfig selects the job registry backend.
type RegistryConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=memory postgres"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
}
