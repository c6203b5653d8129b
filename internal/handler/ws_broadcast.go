package handler

// BroadcastToPlayer implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastToPlayer(playerID string, eventType string, data any) {
	h.SendToPlayer(playerID, WSEvent{
		Type: eventType,
		Data: data,
	})
}
