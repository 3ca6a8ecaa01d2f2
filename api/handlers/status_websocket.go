package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

const (
	statusPollInterval = 500 * time.Millisecond
	pingInterval       = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatusWebSocketHandler streams status snapshots over a WebSocket
type StatusWebSocketHandler struct {
	status domain.StatusStore
	logger *zap.Logger
}

// NewStatusWebSocketHandler creates a new status stream handler
func NewStatusWebSocketHandler(status domain.StatusStore, log *zap.Logger) *StatusWebSocketHandler {
	return &StatusWebSocketHandler{status: status, logger: log}
}

// HandleWebSocket handles GET /api/v1/status/ws. The current status is sent
// at once with all its messages; later frames carry only new messages.
func (h *StatusWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Status stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	// Client messages are only read to notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last domain.DownloadStatus
	first := true
	send := func() bool {
		snap := h.status.Snapshot()
		if !first && !statusChanged(last, snap) {
			return true
		}
		offset := len(last.StatusMessages)
		if first || snap.BatchID != last.BatchID {
			offset = 0
		}
		first = false
		last = snap
		if err := conn.WriteJSON(snap.UpdateSince(offset)); err != nil {
			h.logger.Debug("Status stream write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send() {
		return
	}

	poll := time.NewTicker(statusPollInterval)
	defer poll.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-poll.C:
			if !send() {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// statusChanged compares snapshots; messages are append-only within a batch
func statusChanged(a, b domain.DownloadStatus) bool {
	return a.BatchID != b.BatchID ||
		a.Running != b.Running ||
		a.CompletedItems != b.CompletedItems ||
		a.Progress != b.Progress ||
		len(a.StatusMessages) != len(b.StatusMessages)
}
