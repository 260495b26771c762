package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/pkg/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Operators connect from the dashboard origin; the JWT already gates
	// access, so the origin check stays permissive.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleMonitor streams a call's transcript over a websocket as turns land.
// GET /api/calls/:call_sid/live (JWT protected, token also accepted as a
// query parameter for browser websocket clients).
func (h *Handler) HandleMonitor(c *gin.Context) {
	callID := c.Param("call_sid")
	if callID == "" {
		errors.BadRequest(c, "call_sid is required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			zap.String("call_id", callID),
			zap.Error(err))
		return
	}

	h.hub.Subscribe(callID, conn)
	h.logger.Info("Monitor attached",
		zap.String("call_id", callID),
		zap.String("operator", c.GetString("operator")))

	defer func() {
		h.hub.Unsubscribe(callID, conn)
		conn.Close()
		h.logger.Info("Monitor detached", zap.String("call_id", callID))
	}()

	// Drain the read side to notice the client going away. Subscribers
	// never send anything meaningful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
