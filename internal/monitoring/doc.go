/*
Package monitoring provides Prometheus metrics for the FileDeck backend.

# Overview

Metrics cover three layers: HTTP requests, dispatched filesystem
operations and WebSocket connections. Metrics also records skipped bulk
items and tracks nested archive temp copies through the resolver's temp
hook, so leaked temp files show up as a gauge that never returns to zero.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	provider := filesystem.New(filesystem.Config{
		Metrics:  metrics,
		TempHook: metrics.TempFiles,
	})

	router.Use(monitoring.Middleware(metrics))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
