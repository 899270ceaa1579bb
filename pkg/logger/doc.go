// Package logger builds configured log/slog loggers with consistent
// defaults: JSON output at info level for production, text output at debug
// level for development via WithDevelopment.
package logger
