// internal/websocket/hub.go
package websocket

import (
	"encoding/json"

	"go.uber.org/zap"
)

type initialMessage struct {
	client  *Client
	message []byte
}

// Hub fans pipeline events out to connected dashboard clients. Events share
// one envelope: {"type": "...", "payload": ...} with types "message",
// "alert", "batch", and "history".
//
// Run is the only goroutine that ever touches a client's send channel from
// the hub side; closing and sending both happen there, so no other
// goroutine can race a close.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	initial    chan initialMessage
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		initial:    make(chan initialMessage),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client registered",
				zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("websocket client unregistered",
					zap.Int("clients", len(h.clients)))
			}

		case im := <-h.initial:
			// The client may already be gone; its channel is closed then
			// and must not be written.
			if _, ok := h.clients[im.client]; !ok {
				h.logger.Debug("dropping initial payload for departed client")
				continue
			}
			select {
			case im.client.send <- im.message:
			default:
				// Buffer full; the replay is best effort.
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or gone; drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// SendInitial queues a one-off payload for a single client, typically the
// history replay after connect. Delivery happens on the hub goroutine so it
// is safe against concurrent unregistration.
func (h *Hub) SendInitial(client *Client, message []byte) {
	h.initial <- initialMessage{client: client, message: message}
}

// Broadcast wraps payload in the event envelope and fans it out.
func (h *Hub) Broadcast(eventType string, payload any) {
	message, err := json.Marshal(map[string]any{"type": eventType, "payload": payload})
	if err != nil {
		h.logger.Error("error encoding broadcast", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.broadcast <- message
}
