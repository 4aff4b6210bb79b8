package notify

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to hub clients.
type Handler struct {
	hub *Hub
	ctx context.Context
}

// NewHandler creates a websocket handler. ctx bounds the lifetime of every
// connection it accepts.
func NewHandler(ctx context.Context, hub *Hub) *Handler {
	return &Handler{hub: hub, ctx: ctx}
}

// HandleConnection handles websocket upgrade and connection.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to upgrade connection", "error", err)
		return
	}

	client := NewClient(h.hub, conn)
	select {
	case h.hub.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.ctx)
}
