// Package ws bridges the engine to a live browser over a websocket.
//
// The extension shim connects to /ws and exposes the host capability
// surface through a request/response protocol; tab events stream back
// over the same socket. The bridge implements browser.Host, so the
// reconcilers cannot tell it apart from the in-memory host.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/infrastructure/monitoring"
	"github.com/arcify/spaces/internal/shared/id"
	"github.com/arcify/spaces/internal/shared/types"
)

const callTimeout = 15 * time.Second

// ErrDisconnected is returned by calls made after the shim went away.
var ErrDisconnected = errors.New("browser host disconnected")

// envelope is the single wire frame in both directions.
type envelope struct {
	Type   string          `json:"type"` // "request", "response", "event"
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	OK     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Event  *types.Event    `json:"event,omitempty"`
}

// Bridge is one connected browser host.
type Bridge struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan envelope
	closed  bool

	done    chan struct{}
	events  chan types.Event
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewBridge wraps an upgraded connection. The caller must run
// ReadLoop.
func NewBridge(conn *websocket.Conn, logger *zap.Logger, metrics *monitoring.Metrics) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		conn:    conn,
		pending: make(map[string]chan envelope),
		done:    make(chan struct{}),
		events:  make(chan types.Event, 256),
		logger:  logger,
		metrics: metrics,
	}
}

func (b *Bridge) Tabs() browser.Tabs           { return tabsBridge{b} }
func (b *Bridge) TabGroups() browser.TabGroups { return groupsBridge{b} }
func (b *Bridge) Bookmarks() browser.Bookmarks { return bookmarksBridge{b} }
func (b *Bridge) Events() <-chan types.Event   { return b.events }

// Done closes when the connection is gone.
func (b *Bridge) Done() <-chan struct{} { return b.done }

// ReadLoop pumps incoming frames until the socket fails, then fails
// every pending call and closes the event feed.
func (b *Bridge) ReadLoop() {
	defer b.teardown()
	for {
		var env envelope
		if err := b.conn.ReadJSON(&env); err != nil {
			b.logger.Info("host bridge read ended", zap.Error(err))
			return
		}
		if b.metrics != nil {
			b.metrics.WSMessages.WithLabelValues("in").Inc()
		}
		switch env.Type {
		case "response":
			b.mu.Lock()
			ch, ok := b.pending[env.ID]
			delete(b.pending, env.ID)
			b.mu.Unlock()
			if ok {
				ch <- env
			}
		case "event":
			if env.Event == nil {
				continue
			}
			select {
			case b.events <- *env.Event:
			default:
				b.logger.Warn("event feed full, dropping host event",
					zap.String("kind", string(env.Event.Kind)))
			}
		}
	}
}

func (b *Bridge) teardown() {
	b.mu.Lock()
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]chan envelope)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- envelope{OK: false, Error: ErrDisconnected.Error()}
	}
	close(b.events)
	close(b.done)
	b.conn.Close()
}

// call performs one request/response round trip.
func (b *Bridge) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", method, err)
	}
	rid := id.NewRequestID()
	ch := make(chan envelope, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrDisconnected
	}
	b.pending[rid] = ch
	b.mu.Unlock()

	env := envelope{Type: "request", ID: rid, Method: method, Params: raw}
	b.writeMu.Lock()
	err = b.conn.WriteJSON(env)
	b.writeMu.Unlock()
	if err != nil {
		b.mu.Lock()
		delete(b.pending, rid)
		b.mu.Unlock()
		return fmt.Errorf("failed to send %s: %w", method, err)
	}
	if b.metrics != nil {
		b.metrics.WSMessages.WithLabelValues("out").Inc()
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%s timed out", method)
	case resp := <-ch:
		if !resp.OK {
			return fmt.Errorf("%s failed: %s", method, resp.Error)
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// Capability adapters

type tabsBridge struct{ b *Bridge }

type createTabParams struct {
	URL      string         `json:"url,omitempty"`
	WindowID types.WindowID `json:"window_id,omitempty"`
	Active   bool           `json:"active"`
	OpenerID *types.TabID   `json:"opener_id,omitempty"`
}

func (t tabsBridge) Create(ctx context.Context, opts browser.CreateTabOptions) (*types.Tab, error) {
	var tab types.Tab
	err := t.b.call(ctx, "tabs.create", createTabParams{
		URL: opts.URL, WindowID: opts.WindowID, Active: opts.Active, OpenerID: opts.OpenerID,
	}, &tab)
	if err != nil {
		return nil, err
	}
	return &tab, nil
}

func (t tabsBridge) Get(ctx context.Context, id types.TabID) (*types.Tab, error) {
	var tab types.Tab
	if err := t.b.call(ctx, "tabs.get", tabIDParams{id}, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

type updateTabParams struct {
	ID     types.TabID `json:"id"`
	URL    *string     `json:"url,omitempty"`
	Active *bool       `json:"active,omitempty"`
	Pinned *bool       `json:"pinned,omitempty"`
}

func (t tabsBridge) Update(ctx context.Context, id types.TabID, opts browser.UpdateTabOptions) (*types.Tab, error) {
	var tab types.Tab
	err := t.b.call(ctx, "tabs.update", updateTabParams{
		ID: id, URL: opts.URL, Active: opts.Active, Pinned: opts.Pinned,
	}, &tab)
	if err != nil {
		return nil, err
	}
	return &tab, nil
}

func (t tabsBridge) Remove(ctx context.Context, id types.TabID) error {
	return t.b.call(ctx, "tabs.remove", tabIDParams{id}, nil)
}

type tabQueryParams struct {
	WindowID *types.WindowID `json:"window_id,omitempty"`
	GroupID  *types.GroupID  `json:"group_id,omitempty"`
	Pinned   *bool           `json:"pinned,omitempty"`
	Active   *bool           `json:"active,omitempty"`
}

func (t tabsBridge) Query(ctx context.Context, q browser.TabQuery) ([]*types.Tab, error) {
	var tabs []*types.Tab
	err := t.b.call(ctx, "tabs.query", tabQueryParams{
		WindowID: q.WindowID, GroupID: q.GroupID, Pinned: q.Pinned, Active: q.Active,
	}, &tabs)
	return tabs, err
}

type groupTabsParams struct {
	TabIDs  []types.TabID  `json:"tab_ids"`
	GroupID *types.GroupID `json:"group_id,omitempty"`
}

func (t tabsBridge) Group(ctx context.Context, ids []types.TabID, groupID *types.GroupID) (types.GroupID, error) {
	var result struct {
		GroupID types.GroupID `json:"group_id"`
	}
	err := t.b.call(ctx, "tabs.group", groupTabsParams{TabIDs: ids, GroupID: groupID}, &result)
	if err != nil {
		return types.NoGroup, err
	}
	return result.GroupID, nil
}

func (t tabsBridge) Ungroup(ctx context.Context, ids []types.TabID) error {
	return t.b.call(ctx, "tabs.ungroup", groupTabsParams{TabIDs: ids}, nil)
}

type tabIDParams struct {
	ID types.TabID `json:"id"`
}

type groupsBridge struct{ b *Bridge }

func (g groupsBridge) Get(ctx context.Context, id types.GroupID) (*types.Group, error) {
	var group types.Group
	err := g.b.call(ctx, "tabGroups.get", struct {
		ID types.GroupID `json:"id"`
	}{id}, &group)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (g groupsBridge) Query(ctx context.Context, q browser.GroupQuery) ([]*types.Group, error) {
	var out []*types.Group
	err := g.b.call(ctx, "tabGroups.query", struct {
		WindowID *types.WindowID `json:"window_id,omitempty"`
		Title    *string         `json:"title,omitempty"`
	}{q.WindowID, q.Title}, &out)
	return out, err
}

func (g groupsBridge) Update(ctx context.Context, id types.GroupID, u browser.GroupUpdate) (*types.Group, error) {
	var group types.Group
	err := g.b.call(ctx, "tabGroups.update", struct {
		ID        types.GroupID `json:"id"`
		Title     *string       `json:"title,omitempty"`
		Color     *types.Color  `json:"color,omitempty"`
		Collapsed *bool         `json:"collapsed,omitempty"`
	}{id, u.Title, u.Color, u.Collapsed}, &group)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

type bookmarksBridge struct{ b *Bridge }

func (m bookmarksBridge) SearchByTitle(ctx context.Context, title string) ([]*types.BookmarkNode, error) {
	var out []*types.BookmarkNode
	err := m.b.call(ctx, "bookmarks.search", struct {
		Title string `json:"title"`
	}{title}, &out)
	return out, err
}

func (m bookmarksBridge) GetChildren(ctx context.Context, folderID string) ([]*types.BookmarkNode, error) {
	var out []*types.BookmarkNode
	err := m.b.call(ctx, "bookmarks.getChildren", struct {
		ID string `json:"id"`
	}{folderID}, &out)
	return out, err
}

func (m bookmarksBridge) Create(ctx context.Context, parentID, title, url string) (*types.BookmarkNode, error) {
	var node types.BookmarkNode
	err := m.b.call(ctx, "bookmarks.create", struct {
		ParentID string `json:"parent_id"`
		Title    string `json:"title"`
		URL      string `json:"url,omitempty"`
	}{parentID, title, url}, &node)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (m bookmarksBridge) Update(ctx context.Context, id string, title, url *string) error {
	return m.b.call(ctx, "bookmarks.update", struct {
		ID    string  `json:"id"`
		Title *string `json:"title,omitempty"`
		URL   *string `json:"url,omitempty"`
	}{id, title, url}, nil)
}

func (m bookmarksBridge) Move(ctx context.Context, id, newParentID string) error {
	return m.b.call(ctx, "bookmarks.move", struct {
		ID       string `json:"id"`
		ParentID string `json:"parent_id"`
	}{id, newParentID}, nil)
}

func (m bookmarksBridge) Remove(ctx context.Context, id string) error {
	return m.b.call(ctx, "bookmarks.remove", struct {
		ID string `json:"id"`
	}{id}, nil)
}

func (m bookmarksBridge) RemoveTree(ctx context.Context, id string) error {
	return m.b.call(ctx, "bookmarks.removeTree", struct {
		ID string `json:"id"`
	}{id}, nil)
}
