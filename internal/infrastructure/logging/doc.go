// Package logging provides structured logging for qrauto.
//
// It wraps the standard log/slog package so every component logs with the
// same handler, level filtering, and default fields (service, version).
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stderr, stdout, or a file path
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("run started", "source", "camera")
//	runLog := logger.With("run_id", id)
//
// Payload text may come from an untrusted scan. Log its length or
// description, not the raw text, at info level and above.
package logging
