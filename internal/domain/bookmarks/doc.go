// Package bookmarks implements the folder tree accessor: recursive
// read/write/search operations over the bookmark hierarchy anchored at
// the engine's root folder.
//
// Absence is routine here. Every traversal treats a missing
// intermediate folder as "not found" and reports it through nil/false
// returns; errors are reserved for host-call failures. Callers decide
// whether to create what is missing.
package bookmarks
