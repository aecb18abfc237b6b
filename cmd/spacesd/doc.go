// Package main is the entry point for the spaces synchronization
// daemon.
//
// The daemon sits between the browser and the engine state:
//
//	Sidebar / REST clients → spacesd → Browser shim (WebSocket)
//	                                → Key-value store (disk)
//
// The server provides:
//   - REST API for space and tab management
//   - WebSocket endpoint the browser shim connects to
//   - Prometheus metrics
//   - Rate limiting and request correlation
//
// Configuration:
//   - Environment variables (ARCIFY_* prefix)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./spacesd -port 7430 -storage /var/lib/spaces
//
//	# Development mode (colored logs, debug level, in-memory host)
//	./spacesd -dev -demo
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
