package ws

import "github.com/mmuslimabdulj/hero-arena/internal/domain"

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Bind sets the identity a client has connected. An empty address unbinds.
func (h *Hub) Bind(c *Client, address string) {
	select {
	case h.bind <- binding{client: c, address: address}:
	case <-h.done:
	}
}

// Record adds a notice to the activity of its identity. It never blocks;
// notices are dropped when the hub is backed up.
func (h *Hub) Record(from *Client, n domain.NoticePayload) {
	select {
	case h.record <- activity{from: from.ID, notice: n}:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// History returns the recent notices of an identity, oldest first
func (h *Hub) History(address string) []domain.NoticePayload {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rb, ok := h.histories[address]; ok {
		return rb.GetAll()
	}
	return nil
}

// BoundAddress returns the identity a client is bound to
func (h *Hub) BoundAddress(clientID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addresses[clientID]
}
