// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	gwebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/pipeline"
	"github.com/harperreed/houseagent/internal/storage"
	"github.com/harperreed/houseagent/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves the collector's observability dashboard: recent messages,
// pipeline status, and the live websocket feed.
type Handler struct {
	recent  *storage.Recent
	batcher *pipeline.Batcher
	hub     *websocket.Hub
	started time.Time
	logger  *zap.Logger
}

func NewHandler(recent *storage.Recent, batcher *pipeline.Batcher, hub *websocket.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		recent:  recent,
		batcher: batcher,
		hub:     hub,
		started: time.Now(),
		logger:  logger,
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"messages": h.recent.Items()})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"queue_size":     h.batcher.QueueSize(),
	}
	if last := h.batcher.LastBatch(); last != nil {
		status["last_batch"] = json.RawMessage(last)
	}
	writeJSON(w, status)
}

// HandleWebSocket upgrades the connection, registers it with the hub, and
// replays recent messages so the dashboard isn't empty on connect.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	go h.sendHistory(client)
}

func (h *Handler) sendHistory(client *websocket.Client) {
	items := h.recent.Items()
	if len(items) == 0 {
		return
	}

	message, err := json.Marshal(map[string]any{"type": "history", "payload": items})
	if err != nil {
		h.logger.Error("error encoding history", zap.Error(err))
		return
	}

	h.hub.SendInitial(client, message)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
