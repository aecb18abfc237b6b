// Package storage provides the engine's durable key-value store.
//
// Two namespaces exist, mirroring the host storage areas:
//   - local: machine-local state (the space registry, activity times)
//   - sync:  roaming state (tab title overrides)
//
// Each namespace is persisted as a single JSON document, rewritten
// atomically on every mutation. Writers are notified of changes
// through a subscription feed.
package storage
