// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the application,
// convenience constructors for common attributes, and PII-safe helpers for
// logging user identifiers and tokens.
package logging
