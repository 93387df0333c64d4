package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables read by Load.
const EnvPrefix = "WRAPPER"

// legacyEnv maps configuration keys to the environment variable names used by
// earlier deployments of the wrapper. They are honored alongside the prefixed names.
var legacyEnv = map[string]string{
	"engine.address":  "ZEEBE_ADDRESS",
	"auth.jwt_secret": "JWT_SECRET",
	"auth.disabled":   "DISABLE_AUTH",
	"tasks.disabled":  "DISABLE_TASK_API",
	"server.debug":    "DEBUG",
	"server.dev_mode": "DEV_MODE",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/camunda-wrapper")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", legacy, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Debug {
		cfg.Server.LogLevel = "debug"
	}
	cfg.Tasks.CompleteTimeout = cfg.Engine.RequestTimeout

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("engine.address", "camunda8-zeebe-gateway:26500")
	v.SetDefault("engine.plaintext", true)
	v.SetDefault("engine.worker_timeout", 60*time.Second)
	v.SetDefault("engine.request_timeout", 10*time.Second)
	v.SetDefault("engine.worker_suffix", "")
	v.SetDefault("engine.startup_wait", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.token_lifetime", 30*24*time.Hour)

	v.SetDefault("tasks.disabled", false)
	v.SetDefault("tasks.topic", "io.camunda.zeebe:userTask")
	v.SetDefault("tasks.worker_name", "")
	v.SetDefault("tasks.lock_duration", time.Second)
	v.SetDefault("tasks.poll_timeout", 10*time.Second)
	v.SetDefault("tasks.poll_interval", 30*time.Second)
	v.SetDefault("tasks.max_jobs", 10000)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "camunda-wrapper")
}
