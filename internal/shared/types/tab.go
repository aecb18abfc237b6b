package types

// TabID identifies a live browser tab. Tab handles are ephemeral: the
// host invalidates them when the tab closes.
type TabID int

// GroupID identifies a live tab group. Group handles are recreated when
// the last tab of a group closes, so a GroupID is never a stable key.
type GroupID int

// WindowID identifies a browser window.
type WindowID int

// NoGroup marks a tab that belongs to no tab group.
const NoGroup GroupID = -1

// Tab is the engine's view of a live browser tab.
type Tab struct {
	ID       TabID    `json:"id"`
	WindowID WindowID `json:"window_id"`
	GroupID  GroupID  `json:"group_id"`
	OpenerID *TabID   `json:"opener_id,omitempty"`
	Index    int      `json:"index"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Pinned   bool     `json:"pinned"` // host-level pin, excludes the tab from grouping
	Active   bool     `json:"active"`
}

// TabChange carries the changed fields of a tab-updated event. Nil
// fields were not touched by the host.
type TabChange struct {
	URL     *string  `json:"url,omitempty"`
	Title   *string  `json:"title,omitempty"`
	Pinned  *bool    `json:"pinned,omitempty"`
	GroupID *GroupID `json:"group_id,omitempty"`
}

// Group is the engine's view of a live tab group.
type Group struct {
	ID        GroupID  `json:"id"`
	WindowID  WindowID `json:"window_id"`
	Title     string   `json:"title"`
	Color     Color    `json:"color"`
	Collapsed bool     `json:"collapsed"`
}
