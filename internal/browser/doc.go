// Package browser defines the capability surface the engine consumes
// from its browser host: tabs, tab groups, bookmarks, and the event
// feed. The engine never talks to a browser API directly; everything
// goes through these interfaces so the reconcilers can run against the
// in-memory host in tests and against the websocket bridge in
// production.
package browser
