// Package logging provides structured logging using uber/zap.
//
// Two encodings are supported:
//   - Console: one human-readable line per event, the default for the CLI
//     and for library callers that do not pass their own logger
//   - JSON: machine-parseable output for long-running processes
//
// Render pipeline conventions:
//   - Info: per-render timing line ("/about - 42ms")
//   - Warn: readiness timeouts, inputs that look like missing files
//   - Error: unhandled rejections and uncaught callback errors inside a realm
//   - Debug: console output captured from the rendered application
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("rendered", zap.String("url", "/"), zap.Duration("elapsed", d))
package logging
