package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Engine  EngineConfig  `mapstructure:"engine" validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth" validate:"required"`
	Tasks   TasksConfig   `mapstructure:"tasks" validate:"required"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	// Debug forces debug logging and enables the HTTP access log.
	Debug bool `mapstructure:"debug"`
	// DevMode skips the startup wait for the engine.
	DevMode         bool          `mapstructure:"dev_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// EngineConfig describes how to reach the Zeebe gateway and how long
// synchronous calls may wait for it.
type EngineConfig struct {
	Address   string `mapstructure:"address" validate:"required,hostname_port"`
	Plaintext bool   `mapstructure:"plaintext"`
	// WorkerTimeout bounds a worker call (create instance and await result).
	WorkerTimeout time.Duration `mapstructure:"worker_timeout" validate:"gt=0"`
	// RequestTimeout bounds every other unary call: instance creation and
	// job completion.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	// WorkerSuffix is appended to the worker name to form the BPMN process id.
	WorkerSuffix string `mapstructure:"worker_suffix"`
	// StartupWait is how long startup waits for the gateway topology before
	// serving anyway. Zero disables the wait.
	StartupWait time.Duration `mapstructure:"startup_wait" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required_unless=Disabled true"`
	Disabled      bool          `mapstructure:"disabled"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// TasksConfig controls the user task registry and its lease loop.
type TasksConfig struct {
	Disabled     bool          `mapstructure:"disabled"`
	Topic        string        `mapstructure:"topic" validate:"required"`
	WorkerName   string        `mapstructure:"worker_name"`
	LockDuration time.Duration `mapstructure:"lock_duration" validate:"gt=0,ltfield=PollInterval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" validate:"gte=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxJobs      int           `mapstructure:"max_jobs" validate:"gt=0"`
	// CompleteTimeout bounds a CompleteJob call. It is copied from
	// Engine.RequestTimeout and has no key of its own.
	CompleteTimeout time.Duration `mapstructure:"-"`
}

// TracingConfig controls OpenTelemetry spans around engine calls.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}
