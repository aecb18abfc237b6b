package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The listener binds to loopback; the shim's extension origin
		// is not a stable value to pin.
		return true
	},
}

// Handler upgrades shim connections and hands each bridge to the
// engine.
type Handler struct {
	onHost  func(*Bridge)
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a websocket handler. onHost runs once per
// connected shim, with the bridge ready for calls.
func NewHandler(onHost func(*Bridge), logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{onHost: onHost, logger: logger, metrics: metrics}
}

// HandleConnection serves one shim connection until it drops.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}
	h.logger.Info("browser host connected", zap.String("remote", conn.RemoteAddr().String()))

	bridge := NewBridge(conn, h.logger, h.metrics)
	if h.onHost != nil {
		h.onHost(bridge)
	}
	bridge.ReadLoop()
	h.logger.Info("browser host disconnected")
}
