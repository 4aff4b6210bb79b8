package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stemyke/node-backend-sub000/logging/logger"
)

// MessageType defines message types.
type MessageType string

const (
	MessageTypeJoin     MessageType = "join"
	MessageTypeLeave    MessageType = "leave"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
	MessageTypeProgress MessageType = "progress"
)

// Message is the websocket wire format. Clients send join/leave with the
// progress id as room; the hub pushes progress messages to that room.
type Message struct {
	Type      MessageType    `json:"type"`
	Room      string         `json:"room,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Hub maintains websocket clients grouped in rooms named by progress id.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new websocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run serves registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug(ctx, "Client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.remove(client)
			logger.Debug(ctx, "Client unregistered", "client_id", client.id)

		case message := <-h.broadcast:
			h.deliver(ctx, message)

		case <-ticker.C:
			h.mu.RLock()
			count := len(h.clients)
			roomCount := len(h.rooms)
			h.mu.RUnlock()
			logger.Debug(ctx, "Hub stats", "clients", count, "rooms", roomCount)
		}
	}
}

// ProgressChanged pushes a progress message to the room of progressID.
func (h *Hub) ProgressChanged(ctx context.Context, progressID string) {
	msg := &Message{
		Type:      MessageTypeProgress,
		Room:      progressID,
		Data:      map[string]any{"id": progressID},
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn(ctx, "Hub broadcast buffer full, dropping event", "progress_id", progressID)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room, clients := range h.rooms {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

func (h *Hub) deliver(ctx context.Context, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error(ctx, "Failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[message.Room] {
		select {
		case client.send <- data:
		default:
			logger.Warn(ctx, "Client send buffer full", "client_id", client.id)
		}
	}
}

// JoinRoom adds a client to a room.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// LeaveRoom removes a client from a room.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize returns how many clients listen on room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomSizes := make(map[string]int)
	for room, clients := range h.rooms {
		roomSizes[room] = len(clients)
	}

	return map[string]any{
		"total_clients": len(h.clients),
		"total_rooms":   len(h.rooms),
		"rooms":         roomSizes,
	}
}
