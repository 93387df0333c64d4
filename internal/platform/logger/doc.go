// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, including a FATAL level used for engine failures that
// the gateway cannot classify.
package logger
