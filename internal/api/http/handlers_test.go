package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcify/spaces/internal/browser/memhost"
	"github.com/arcify/spaces/internal/domain/activity"
	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/domain/groups"
	"github.com/arcify/spaces/internal/domain/reconcile"
	"github.com/arcify/spaces/internal/domain/space"
	"github.com/arcify/spaces/internal/domain/titles"
	"github.com/arcify/spaces/internal/shared/types"
	"github.com/arcify/spaces/internal/storage"
)

func newTestRouter(t *testing.T, engine *reconcile.Reconciler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandlers(func() *reconcile.Reconciler { return engine }, nil)
	h.Register(router)
	return router
}

func newTestEngine(t *testing.T) *reconcile.Reconciler {
	t.Helper()
	h := memhost.New()
	store, err := storage.Open("", nil)
	require.NoError(t, err)
	adapter := groups.NewAdapter(h.Tabs(), h.TabGroups(), nil)
	folders := bookmarks.NewAccessor(h.Bookmarks(), h.Tabs(), "Arcify", nil)
	registry := space.NewManager(h.Tabs(), adapter, folders, store, nil)

	engine := reconcile.New(reconcile.Config{
		Tabs:     h.Tabs(),
		Adapter:  adapter,
		Folders:  folders,
		Registry: registry,
		Titles:   titles.NewManager(store, nil),
		Tracker:  activity.NewTracker(store, nil),
	})
	require.NoError(t, engine.Init(context.Background()))
	return engine
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body) //nolint:errcheck
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthReportsHostAttachment(t *testing.T) {
	router := newTestRouter(t, nil)

	w := do(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["host_connected"])
}

func TestEndpointsAnswer503WithoutHost(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/spaces", "/stats"} {
		w := do(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestSpaceLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t, newTestEngine(t))

	// Create.
	w := do(router, http.MethodPost, "/spaces", map[string]interface{}{
		"name": "Work", "color": "blue",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created types.Space
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Work", created.Name)
	require.NotEmpty(t, created.UUID)

	// Duplicate name conflicts.
	w = do(router, http.MethodPost, "/spaces", map[string]interface{}{"name": "Work"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// List includes the bootstrap default space and the new one.
	w = do(router, http.MethodGet, "/spaces", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Spaces []types.Space `json:"spaces"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Spaces, 2)

	// Rename.
	w = do(router, http.MethodPatch, "/spaces/"+created.UUID, map[string]interface{}{"name": "Focus"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/spaces/"+created.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got types.Space
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Focus", got.Name)

	// Delete.
	w = do(router, http.MethodDelete, "/spaces/"+created.UUID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(router, http.MethodGet, "/spaces/"+created.UUID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSpaceRejectsBadPayload(t *testing.T) {
	router := newTestRouter(t, newTestEngine(t))

	w := do(router, http.MethodPost, "/spaces", map[string]interface{}{"color": "blue"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpenBookmarkAndListBookmarks(t *testing.T) {
	engine := newTestEngine(t)
	router := newTestRouter(t, engine)
	uuid := engine.Registry().List()[0].UUID

	w := do(router, http.MethodPost, "/spaces/"+uuid+"/bookmarks/open", map[string]interface{}{
		"url": "https://docs",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var tab types.Tab
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tab))
	assert.Equal(t, "https://docs", tab.URL)

	w = do(router, http.MethodGet, "/spaces/"+uuid+"/bookmarks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Bookmarks []types.BookmarkEntry `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Bookmarks, 1)
	assert.Equal(t, "https://docs", listed.Bookmarks[0].URL)
	require.NotNil(t, listed.Bookmarks[0].TabID)
	assert.Equal(t, tab.ID, *listed.Bookmarks[0].TabID)
}

func TestDropAndStats(t *testing.T) {
	engine := newTestEngine(t)
	router := newTestRouter(t, engine)
	sp := engine.Registry().List()[0]
	tabID := sp.TemporaryTabs[0]

	w := do(router, http.MethodPost, "/drop", map[string]interface{}{
		"tab_id":      tabID,
		"target_uuid": sp.UUID,
		"pinned":      true,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats types.SpaceStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSpaces)
	assert.Equal(t, 1, stats.PinnedTabs)
	assert.Equal(t, 0, stats.TemporaryTabs)
}

func TestCloseTabValidatesID(t *testing.T) {
	router := newTestRouter(t, newTestEngine(t))

	w := do(router, http.MethodPost, "/tabs/abc/close", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
