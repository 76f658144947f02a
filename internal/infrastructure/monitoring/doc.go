/*
Package monitoring provides Prometheus-based metrics for the daemon.

# Overview

Tracks HTTP traffic, shell command round-trips, target activations, power
control operations, capture volume, script runs, and WebSocket connections.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time a shell command
	timer := monitoring.NewCommandTimer(metrics, "lm3s6965evb")
	// ... run the command ...
	timer.Stop("ok")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
