// Package http provides the HTTP transport of the FileDeck backend.
//
// Operations are executed through a single endpoint taking the same flat
// request body the websocket transport uses. Failed envelopes are still
// returned as JSON; the HTTP status is derived from the error kind.
//
// Endpoints:
//   - Health: / and /health
//   - Catalog: GET /operations
//   - Execution: POST /api/execute
//   - Metrics: GET /metrics (mounted by the server package)
//
// Middleware:
//   - RateLimit: per-IP token bucket (golang.org/x/time/rate)
//   - CORS: gin-contrib/cors
//
// Example Usage:
//
//	handlers := http.NewHandlers(provider, metrics, logger)
//	router.Use(http.CORS(http.DefaultCORSConfig()))
//	router.POST("/api/execute", handlers.Execute)
package http
