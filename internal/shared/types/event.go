package types

// EventKind enumerates the normalized host events the reconciler
// dispatches on. Host callbacks are translated into these values so the
// state machine can be driven deterministically in tests.
type EventKind string

const (
	EventTabCreated   EventKind = "tab_created"
	EventTabUpdated   EventKind = "tab_updated"
	EventTabRemoved   EventKind = "tab_removed"
	EventTabActivated EventKind = "tab_activated"
)

// Event is a normalized host event. Which fields are set depends on
// Kind: created and activated carry Tab, updated carries TabID, Change
// and Tab (the post-change snapshot), removed carries only TabID.
type Event struct {
	Kind   EventKind  `json:"kind"`
	TabID  TabID      `json:"tab_id"`
	Tab    *Tab       `json:"tab,omitempty"`
	Change *TabChange `json:"change,omitempty"`
}
