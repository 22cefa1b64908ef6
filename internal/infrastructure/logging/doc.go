// Package logging provides structured logging for the plua2 emulation core.
//
// It wraps log/slog so every component logs through the same handler with
// the same default fields (service, version), and so the output format and
// level come from configuration rather than per-package choices.
//
// # Configuration
//
// The logging section of config.yaml drives everything:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//
// Packages that accept a logger define a small interface locally and get a
// component-tagged child at wiring time:
//
//	registry.SetLogger(logger.Component("quickapp"))
//
// Remote controller credentials must never be logged; the proxy client logs
// URLs and status codes only.
package logging
