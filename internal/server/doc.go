// Package server provides HTTP server setup and initialization for
// the space synchronization engine.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, request ids, rate limiting, metrics)
//   - WebSocket endpoint for the browser host shim
//   - Per-host engine assembly (registry, folders, groups, reconciler)
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Open the key-value store
//  4. Setup HTTP routes and middleware
//  5. Start the listener; engines come and go with host connections
//  6. Graceful shutdown on signal
//
// Each websocket connection from a browser shim gets its own engine:
// the full domain stack is rebuilt around the new bridge, the
// initialization pass re-derives spaces from live state, and the
// event loop runs until the connection drops. The REST surface
// answers 503 while no host is attached.
package server
