package types

// BookmarkNode is an entry in the bookmark tree. A node with an empty
// URL is a folder; otherwise it is a leaf bookmark.
type BookmarkNode struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parent_id"`
	Title    string          `json:"title"`
	URL      string          `json:"url,omitempty"`
	Children []*BookmarkNode `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *BookmarkNode) IsFolder() bool { return n.URL == "" }

// BookmarkEntry is a flattened leaf produced by a recursive listing,
// optionally matched to an open tab by URL equality.
type BookmarkEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	TabID *TabID `json:"tab_id,omitempty"`
}
