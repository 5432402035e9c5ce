// Package logging provides structured logging for Edge Mining Core.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default attributes service and version on every record.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("api").Info("listening", "port", 8080)
//
// Never log secrets: bot tokens, API tokens and broker passwords stay out of
// records.
package logging
