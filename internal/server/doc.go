// Package server wires the FileDeck backend together.
//
// Server Lifecycle:
//  1. Load configuration from the environment
//  2. Initialize logger (production or development)
//  3. Register Prometheus collectors on a private registry
//  4. Load SMB shares from the optional shares file
//  5. Build the filesystem dispatcher and sweep stale temp archives
//  6. Setup HTTP routes, the /ipc websocket and middleware
//  7. Start HTTP server
//  8. Graceful shutdown on signal, cancelling running operations
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
