// Package logger provides slog attribute helpers shared across certkit
// components.
//
// Helpers follow the empty Attr pattern for nil safety: passing a nil error
// or empty identifier yields an empty attribute that slog drops, so call
// sites never need explicit nil checks:
//
//	log.Error("scan failed", logger.Domain(domain), logger.Error(err))
package logger
