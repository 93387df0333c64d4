package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) func() {
	// Save current environment values
	originalValues := make(map[string]string)
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	for name, value := range envVars {
		err := os.Setenv(name, value)
		require.NoError(t, err, "Failed to set environment variable %s", name)
	}

	return func() {
		for name, value := range originalValues {
			if value == "" {
				os.Unsetenv(name)
			} else {
				os.Setenv(name, value)
			}
		}
	}
}

// TestLoadDefaults verifies that the Load function sets the expected default values
// when only the required secret is provided.
func TestLoadDefaults(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"WRAPPER_AUTH_JWT_SECRET":  "a-secret",
		"WRAPPER_SERVER_PORT":      "",
		"WRAPPER_SERVER_LOG_LEVEL": "",
		"ZEEBE_ADDRESS":            "",
		"DEBUG":                    "",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "camunda8-zeebe-gateway:26500", cfg.Engine.Address)
	assert.Equal(t, 60*time.Second, cfg.Engine.WorkerTimeout)
	assert.Equal(t, 10*time.Second, cfg.Engine.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Tasks.CompleteTimeout, "task completion shares the engine request timeout")
	assert.Equal(t, "io.camunda.zeebe:userTask", cfg.Tasks.Topic)
	assert.Equal(t, 30*time.Second, cfg.Tasks.PollInterval)
	assert.Equal(t, 10000, cfg.Tasks.MaxJobs)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenLifetime)
	assert.False(t, cfg.Tasks.Disabled)
}

// TestLoadFromEnv verifies that the Load function correctly reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"WRAPPER_SERVER_PORT":          "9090",
		"WRAPPER_SERVER_LOG_LEVEL":     "warn",
		"WRAPPER_ENGINE_ADDRESS":       "zeebe.local:26500",
		"WRAPPER_ENGINE_WORKER_SUFFIX": "-worker",
		"WRAPPER_AUTH_JWT_SECRET":      "another-secret",
		"WRAPPER_TASKS_POLL_INTERVAL":  "5s",
		"WRAPPER_TASKS_MAX_JOBS":       "50",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, "zeebe.local:26500", cfg.Engine.Address)
	assert.Equal(t, "-worker", cfg.Engine.WorkerSuffix)
	assert.Equal(t, "another-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.Tasks.PollInterval)
	assert.Equal(t, 50, cfg.Tasks.MaxJobs)
}

// TestLoadLegacyEnv verifies that the environment names of earlier deployments still work.
func TestLoadLegacyEnv(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"ZEEBE_ADDRESS":    "legacy-gateway:26500",
		"JWT_SECRET":       "legacy-secret",
		"DISABLE_TASK_API": "true",
		"DEBUG":            "true",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "legacy-gateway:26500", cfg.Engine.Address)
	assert.Equal(t, "legacy-secret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Tasks.Disabled)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "debug", cfg.Server.LogLevel, "DEBUG should force the debug log level")
}

// TestLoadValidationErrors verifies that the Load function correctly validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name           string
		envVars        map[string]string
		expectError    bool
		errorSubstring string
	}{
		{
			name: "Missing JWT secret",
			envVars: map[string]string{
				"WRAPPER_AUTH_JWT_SECRET": "",
				"JWT_SECRET":              "",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
		{
			name: "Missing JWT secret with auth disabled",
			envVars: map[string]string{
				"WRAPPER_AUTH_JWT_SECRET": "",
				"JWT_SECRET":              "",
				"DISABLE_AUTH":            "true",
			},
			expectError: false,
		},
		{
			name: "Invalid port number",
			envVars: map[string]string{
				"WRAPPER_SERVER_PORT":     "999999",
				"WRAPPER_AUTH_JWT_SECRET": "a-secret",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
		{
			name: "Invalid log level",
			envVars: map[string]string{
				"WRAPPER_SERVER_LOG_LEVEL": "invalid-level",
				"WRAPPER_AUTH_JWT_SECRET":  "a-secret",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
		{
			name: "Lock duration not shorter than poll interval",
			envVars: map[string]string{
				"WRAPPER_AUTH_JWT_SECRET":     "a-secret",
				"WRAPPER_TASKS_LOCK_DURATION": "30s",
				"WRAPPER_TASKS_POLL_INTERVAL": "30s",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
		{
			name: "Zero request timeout",
			envVars: map[string]string{
				"WRAPPER_AUTH_JWT_SECRET":        "a-secret",
				"WRAPPER_ENGINE_REQUEST_TIMEOUT": "0s",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
		{
			name: "Malformed engine address",
			envVars: map[string]string{
				"WRAPPER_AUTH_JWT_SECRET": "a-secret",
				"WRAPPER_ENGINE_ADDRESS":  "no-port-here",
			},
			expectError:    true,
			errorSubstring: "validation failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := setupEnv(t, tc.envVars)
			defer cleanup()

			cfg, err := Load()

			if tc.expectError {
				assert.Error(t, err, "Load() should return an error with invalid configuration")
				if err != nil {
					assert.Contains(t, err.Error(), tc.errorSubstring)
				}
				assert.Nil(t, cfg, "Config should be nil when an error occurs")
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, cfg)
			}
		})
	}
}
