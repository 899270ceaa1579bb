// Package httpserver wraps net/http with graceful shutdown, env-based
// configuration, and health-probe helpers.
package httpserver
