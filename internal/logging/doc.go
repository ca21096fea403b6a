// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Each subsystem receives a named sub-logger from Component, so entries
// carry the emitting layer ("dispatcher", "archive", "resolver", "ws",
// "http") in the logger field.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Component("http").Info("Server starting", zap.String("port", "8090"))
package logging
