// Package http exposes the engine's read/write REST surface. The
// rendering layers re-render from the same registry state these
// endpoints serve.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/domain/reconcile"
	"github.com/arcify/spaces/internal/domain/space"
	"github.com/arcify/spaces/internal/shared/types"
)

// Handlers serves the REST surface. The engine pointer is resolved per
// request because it only exists while a browser host is connected.
type Handlers struct {
	engine func() *reconcile.Reconciler
	logger *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(engine func() *reconcile.Reconciler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{engine: engine, logger: logger}
}

// Register mounts all routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/spaces", h.ListSpaces)
	r.POST("/spaces", h.CreateSpace)
	r.GET("/spaces/:uuid", h.GetSpace)
	r.PATCH("/spaces/:uuid", h.UpdateSpace)
	r.DELETE("/spaces/:uuid", h.DeleteSpace)
	r.POST("/spaces/:uuid/switch", h.SwitchSpace)
	r.GET("/spaces/:uuid/bookmarks", h.ListBookmarks)
	r.POST("/spaces/:uuid/bookmarks/open", h.OpenBookmark)
	r.POST("/tabs/:id/close", h.CloseTab)
	r.POST("/tabs/:id/name", h.RenameTab)
	r.POST("/drop", h.Drop)
	r.GET("/stats", h.Stats)
}

// current resolves the live engine or answers 503.
func (h *Handlers) current(c *gin.Context) *reconcile.Reconciler {
	eng := h.engine()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no browser host connected"})
	}
	return eng
}

// Health reports liveness and host attachment.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"host_connected": h.engine() != nil,
	})
}

// ListSpaces returns every space in registry order.
func (h *Handlers) ListSpaces(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"spaces": eng.Registry().List()})
}

// GetSpace returns one space by UUID.
func (h *Handlers) GetSpace(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	sp, ok := eng.Registry().Get(c.Param("uuid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
		return
	}
	c.JSON(http.StatusOK, sp)
}

type createSpaceRequest struct {
	Name  string      `json:"name" binding:"required"`
	Color types.Color `json:"color"`
}

// CreateSpace makes a new space. A duplicate name is the one
// user-visible failure: it returns 409 for the inline error surface.
func (h *Handlers) CreateSpace(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	var req createSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sp, err := eng.CreateSpace(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		if errors.Is(err, space.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("create space failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sp)
}

type updateSpaceRequest struct {
	Name  *string      `json:"name"`
	Color *types.Color `json:"color"`
}

// UpdateSpace renames or recolors a space.
func (h *Handlers) UpdateSpace(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	var req updateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := eng.UpdateSpace(c.Request.Context(), c.Param("uuid"), req.Name, req.Color)
	if err != nil {
		if errors.Is(err, space.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteSpace destroys a space.
func (h *Handlers) DeleteSpace(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	if err := eng.DeleteSpace(c.Request.Context(), c.Param("uuid")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SwitchSpace activates a space, reactivating it when dormant.
func (h *Handlers) SwitchSpace(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	if err := eng.SwitchSpace(c.Request.Context(), c.Param("uuid")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListBookmarks flattens a space's folder.
func (h *Handlers) ListBookmarks(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	entries, err := eng.ListSpaceBookmarks(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": entries})
}

type openBookmarkRequest struct {
	URL string `json:"url" binding:"required"`
}

// OpenBookmark opens or refocuses a pinned bookmark.
func (h *Handlers) OpenBookmark(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	var req openBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tab, err := eng.OpenBookmark(c.Request.Context(), c.Param("uuid"), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tab)
}

// CloseTab closes a tab, preserving any backing bookmark.
func (h *Handlers) CloseTab(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	tabID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return
	}
	if err := eng.CloseTab(c.Request.Context(), types.TabID(tabID)); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type renameTabRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameTab records a tab name override.
func (h *Handlers) RenameTab(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	tabID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return
	}
	var req renameTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := eng.RenameTab(c.Request.Context(), types.TabID(tabID), req.Name); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type dropRequest struct {
	TabID      types.TabID  `json:"tab_id" binding:"required"`
	TargetUUID string       `json:"target_uuid" binding:"required"`
	Pinned     bool         `json:"pinned"`
	AfterTab   *types.TabID `json:"after_tab"`
	Subfolder  string       `json:"subfolder"`
}

// Drop mirrors a sidebar drag-and-drop.
func (h *Handlers) Drop(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := eng.Drop(c.Request.Context(), req.TabID, req.TargetUUID, req.Pinned, req.AfterTab, req.Subfolder)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats summarizes registry state.
func (h *Handlers) Stats(c *gin.Context) {
	eng := h.current(c)
	if eng == nil {
		return
	}
	c.JSON(http.StatusOK, eng.Registry().Stats())
}
