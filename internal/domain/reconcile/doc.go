// Package reconcile keeps the three stores (space registry, live tab
// groups, bookmark tree) in mutual agreement.
//
// Two entry points exist. Init runs once per session and derives a
// consistent registry from whatever groups and folders already exist.
// Dispatch is the long-running side: every normalized host event flows
// through it, and each handler performs a bounded, idempotent repair.
//
// No error crosses a handler boundary. A failed host call is logged
// and the operation abandoned; the next event, or the next session's
// Init, is relied upon to self-heal the divergence.
package reconcile
