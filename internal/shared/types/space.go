package types

// Color enumerates the tab-group colors the host supports.
type Color string

const (
	ColorGrey   Color = "grey"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
)

// Colors lists every valid color, in host order.
var Colors = []Color{
	ColorGrey, ColorBlue, ColorRed, ColorYellow,
	ColorGreen, ColorPink, ColorPurple, ColorCyan,
}

// IsValid reports whether c is a color the host accepts.
func (c Color) IsValid() bool {
	for _, v := range Colors {
		if c == v {
			return true
		}
	}
	return false
}

// Space is a named, colored grouping of tabs, backed by a host tab
// group and a bookmark folder of the same name.
//
// ID tracks the live tab group and is replaced in place whenever the
// group is recreated (for example when a dormant space is reactivated).
// UUID is the stable identity and survives serialization round-trips.
//
// A tab handle appears in exactly one of SpaceBookmarks and
// TemporaryTabs while the tab is open and grouped, never both.
type Space struct {
	ID             GroupID `json:"id"`
	UUID           string  `json:"uuid"`
	Name           string  `json:"name"`
	Color          Color   `json:"color"`
	SpaceBookmarks []TabID `json:"space_bookmarks"`
	TemporaryTabs  []TabID `json:"temporary_tabs"`
	LastTab        *TabID  `json:"last_tab,omitempty"`
}

// Contains reports whether the space holds the tab in either list.
func (s *Space) Contains(id TabID) bool {
	return containsTab(s.SpaceBookmarks, id) || containsTab(s.TemporaryTabs, id)
}

// Pinned reports whether the tab is in the space's bookmark-backed list.
func (s *Space) Pinned(id TabID) bool {
	return containsTab(s.SpaceBookmarks, id)
}

func containsTab(list []TabID, id TabID) bool {
	for _, t := range list {
		if t == id {
			return true
		}
	}
	return false
}

// SpaceStats summarizes registry state for the stats surface.
type SpaceStats struct {
	TotalSpaces   int     `json:"total_spaces"`
	PinnedTabs    int     `json:"pinned_tabs"`
	TemporaryTabs int     `json:"temporary_tabs"`
	ActiveUUID    *string `json:"active_uuid,omitempty"`
}
