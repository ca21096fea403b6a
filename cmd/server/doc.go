// Package main is the entry point for the FileDeck backend server.
//
// The server exposes one virtual filesystem over native directories,
// archives nested to any depth and mounted SMB shares. A desktop UI talks
// to it over a loopback WebSocket (/ipc) or plain HTTP (/api/execute).
//
// Configuration:
//   - Environment variables (PORT, HOST, LOG_LEVEL, LOG_DEV, FD_TEMP_DIR,
//     FD_YIELD_PAUSE, FD_SHARES_FILE, RATE_LIMIT_*)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8090 -shares /etc/filedeck/shares.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
