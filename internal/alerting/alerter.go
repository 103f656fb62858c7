// internal/alerting/alerter.go
package alerting

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/storage"
	"github.com/harperreed/houseagent/internal/websocket"
)

// Alert is the dashboard-facing record of an anomalous reading.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	SensorID  string    `json:"sensor_id,omitempty"`
	ZoneID    string    `json:"zone_id,omitempty"`
	Score     float64   `json:"score"`
}

// Alerter satisfies the pipeline's AlertSink: accepted messages, anomalies,
// and published batches fan out to the websocket hub and the recent-message
// store backing the dashboard.
type Alerter struct {
	hub    *websocket.Hub
	recent *storage.Recent
	logger *zap.Logger
}

func NewAlerter(hub *websocket.Hub, recent *storage.Recent, logger *zap.Logger) *Alerter {
	return &Alerter{hub: hub, recent: recent, logger: logger}
}

func (a *Alerter) MessageAccepted(msg map[string]any) {
	if a.recent != nil {
		a.recent.Add(msg)
	}
	if a.hub != nil {
		a.hub.Broadcast("message", msg)
	}
}

func (a *Alerter) AnomalyDetected(msg map[string]any, score float64) {
	sensorID, _ := msg["sensor_id"].(string)
	zoneID, _ := msg["zone_id"].(string)

	alert := Alert{
		Timestamp: time.Now(),
		Severity:  "WARN",
		Message:   fmt.Sprintf("Anomalous reading from %s (z=%.2f)", sensorID, score),
		SensorID:  sensorID,
		ZoneID:    zoneID,
		Score:     score,
	}

	a.logger.Info("broadcasting alert",
		zap.String("sensor_id", sensorID), zap.Float64("score", score))
	if a.hub != nil {
		a.hub.Broadcast("alert", alert)
	}
}

func (a *Alerter) BatchPublished(count int, payload []byte) {
	if a.hub != nil {
		a.hub.Broadcast("batch", json.RawMessage(payload))
	}
}
