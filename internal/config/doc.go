// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the wrapper's settings: HTTP server, Zeebe gateway, JWT auth,
// the user task registry and tracing.
package config
