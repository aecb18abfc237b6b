// Package types defines the shared data model for the space
// synchronization engine.
//
// The model mirrors three independently-mutable stores:
//   - Space records (in-memory, persisted as JSON)
//   - live browser tabs and tab groups
//   - a bookmark folder tree
//
// Key Types:
//   - Space: a named, colored grouping of tabs
//   - Tab, Group: ephemeral host-side handles
//   - BookmarkNode: durable bookmark tree entry
//   - Event: normalized host event for reconciler dispatch
package types
