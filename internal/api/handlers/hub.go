package handlers

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TurnEvent is pushed to monitor subscribers after every processed turn.
type TurnEvent struct {
	CallID  string    `json:"call_id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Hub fans live transcript events out to websocket subscribers. A call with
// no subscribers costs one map lookup per turn.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*websocket.Conn]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(callID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[callID] == nil {
		h.subs[callID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[callID][conn] = struct{}{}
}

func (h *Hub) Unsubscribe(callID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.subs[callID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subs, callID)
		}
	}
}

// Publish writes the event to every subscriber of the call. Dead
// connections are dropped on write failure.
func (h *Hub) Publish(event TurnEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[event.CallID]))
	for conn := range h.subs[event.CallID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("Monitor subscriber dropped",
				zap.String("call_id", event.CallID),
				zap.Error(err))
			h.Unsubscribe(event.CallID, conn)
			conn.Close()
		}
	}
}
