// Package space holds the space registry: the in-memory list of Space
// records, persisted write-through to durable storage on every
// mutation.
//
// The registry array is the engine's single shared mutable resource.
// One mutex guards it; mutators are idempotent (duplicate-insert-safe,
// remove-if-present) because host events arrive unordered and handlers
// may observe stale state. Host re-parenting always happens before
// bookkeeping so a failed host call degrades to a no-op instead of
// leaving the stores divergent.
package space
