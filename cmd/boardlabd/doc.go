// Package main is the entry point for the boardlab daemon.
//
// boardlabd owns the consoles of a board lab: it loads a YAML environment
// describing the targets (QEMU-simulated or serial-attached), keeps one
// shell driver per target, and exposes them over REST and WebSocket.
//
// Architecture:
//
//	boardctl / CI → boardlabd → target consoles (PTY, serial)
//	                         → PDU power outlets (REST)
//
// The daemon provides:
//   - REST API for shell commands, boot strategies, and power control
//   - WebSocket streaming of live console output
//   - On-disk console captures with rotation and retention
//   - Prometheus metrics and bearer-token auth
//
// Configuration:
//   - Environment variables (12-factor, BOARDLAB_ prefix)
//   - CLI flags (override env vars)
//
// Usage:
//
//	boardlabd -environment lab.yaml -port 8088 -captures /var/lib/boardlab
//
// A lockfile guards against two daemons owning the same lab. Signals:
// SIGINT and SIGTERM trigger graceful shutdown, closing every console.
package main
