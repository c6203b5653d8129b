package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket.
const (
	EventBattleReport = "battle_report"
	EventConnected    = "connected"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WSConn wraps a WebSocket connection with its player identity.
type WSConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub manages WebSocket connections keyed by player.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
	close(c.send)
}

// SendToPlayer sends an event to a specific player across all their connections.
func (h *Hub) SendToPlayer(playerID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("playerId", playerID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		if c.playerID == playerID {
			select {
			case c.send <- data:
			default:
				log.Warn().Str("playerId", playerID).Msg("Dropping WebSocket message, buffer full")
			}
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// PlayerConnectionCount returns the number of connections a player holds.
func (h *Hub) PlayerConnectionCount(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.connections {
		if c.playerID == playerID {
			n++
		}
	}
	return n
}
