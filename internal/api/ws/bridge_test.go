package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/shared/types"
)

// fakeShim answers bridge requests the way the extension shim does.
type fakeShim struct {
	t       *testing.T
	methods []string
	handler func(method string, params json.RawMessage) (interface{}, string)
}

func (s *fakeShim) serve(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		s.methods = append(s.methods, env.Method)
		result, errMsg := s.handler(env.Method, env.Params)
		reply := envelope{Type: "response", ID: env.ID, OK: errMsg == ""}
		if errMsg != "" {
			reply.Error = errMsg
		} else {
			raw, _ := json.Marshal(result)
			reply.Result = raw
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func dialBridge(t *testing.T, shim *fakeShim) *Bridge {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(shim.serve))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	bridge := NewBridge(conn, nil, nil)
	go bridge.ReadLoop()
	return bridge
}

func TestBridgeRoundTrip(t *testing.T) {
	shim := &fakeShim{t: t, handler: func(method string, params json.RawMessage) (interface{}, string) {
		if method != "tabs.create" {
			return nil, "unexpected method " + method
		}
		var p struct {
			URL string `json:"url"`
		}
		json.Unmarshal(params, &p) //nolint:errcheck
		return &types.Tab{ID: 7, URL: p.URL, GroupID: types.NoGroup}, ""
	}}
	bridge := dialBridge(t, shim)

	tab, err := bridge.Tabs().Create(context.Background(), browser.CreateTabOptions{URL: "https://a"})
	require.NoError(t, err)
	assert.Equal(t, types.TabID(7), tab.ID)
	assert.Equal(t, "https://a", tab.URL)
}

func TestBridgeSurfacesShimErrors(t *testing.T) {
	shim := &fakeShim{t: t, handler: func(string, json.RawMessage) (interface{}, string) {
		return nil, "no tab with id 42"
	}}
	bridge := dialBridge(t, shim)

	_, err := bridge.Tabs().Get(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tab with id 42")
}

func TestBridgeDeliversEvents(t *testing.T) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ev := envelope{Type: "event", Event: &types.Event{
			Kind:  types.EventTabRemoved,
			TabID: 3,
		}}
		conn.WriteJSON(ev) //nolint:errcheck
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	bridge := NewBridge(conn, nil, nil)
	go bridge.ReadLoop()

	select {
	case ev := <-bridge.Events():
		assert.Equal(t, types.EventTabRemoved, ev.Kind)
		assert.Equal(t, types.TabID(3), ev.TabID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBridgeFailsPendingCallsOnDisconnect(t *testing.T) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Read one request, then drop the connection without answering.
		var env envelope
		conn.ReadJSON(&env) //nolint:errcheck
		conn.Close()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	bridge := NewBridge(conn, nil, nil)
	go bridge.ReadLoop()

	_, err = bridge.Tabs().Get(context.Background(), 1)
	require.Error(t, err)

	select {
	case <-bridge.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not torn down after disconnect")
	}
}
