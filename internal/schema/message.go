// internal/schema/message.go
package schema

import (
	"fmt"
	"strings"
	"time"
)

// SensorMessage is the canonical shape every inbound payload is normalized
// into before it enters the pipeline. Legacy home-automation payloads are
// converted; payloads matching neither shape are tagged and forwarded as-is.
type SensorMessage struct {
	TS         string         `json:"ts"`
	SensorID   string         `json:"sensor_id"`
	SensorType string         `json:"sensor_type"`
	ZoneID     string         `json:"zone_id"`
	SiteID     string         `json:"site_id"`
	Floor      int            `json:"floor"`
	Value      map[string]any `json:"value"`
	Quality    map[string]any `json:"quality,omitempty"`
}

const (
	DefaultSiteID = "hq"
	DefaultFloor  = 1

	// ValidationFailedKey marks payloads that matched neither the canonical
	// nor a legacy shape. They ride along in the batch rather than being
	// dropped, so malformed traffic stays visible downstream.
	ValidationFailedKey = "validation_failed"
)

// FromMap validates raw against the canonical shape.
func FromMap(raw map[string]any) (*SensorMessage, error) {
	msg := &SensorMessage{SiteID: DefaultSiteID, Floor: DefaultFloor}

	var err error
	if msg.TS, err = requiredString(raw, "ts"); err != nil {
		return nil, err
	}
	if msg.SensorID, err = requiredString(raw, "sensor_id"); err != nil {
		return nil, err
	}
	if msg.SensorType, err = requiredString(raw, "sensor_type"); err != nil {
		return nil, err
	}
	if msg.ZoneID, err = requiredString(raw, "zone_id"); err != nil {
		return nil, err
	}

	value, ok := raw["value"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %q missing or not a mapping", "value")
	}
	msg.Value = value

	if site, ok := raw["site_id"].(string); ok {
		msg.SiteID = site
	}
	if floor, ok := asInt(raw["floor"]); ok {
		msg.Floor = floor
	}
	if quality, ok := raw["quality"].(map[string]any); ok {
		msg.Quality = quality
	}

	return msg, nil
}

// HasLegacyMarkers reports whether raw looks like one of the two legacy
// shapes: the home-automation state-change format or the old flat format.
func HasLegacyMarkers(raw map[string]any) bool {
	for _, key := range []string{"entity_id", "from_state", "to_state", "sensor", "room", "value"} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}

// FromLegacy converts a legacy payload into the canonical shape. zoneMap
// translates area/room names to zone ids; unmapped areas fall back to the
// raw area name, unmapped rooms to "unknown".
func FromLegacy(raw map[string]any, zoneMap map[string]string) *SensorMessage {
	if _, ok := raw["entity_id"]; ok {
		return fromStateChange(raw, zoneMap)
	}
	return fromFlat(raw, zoneMap)
}

// fromStateChange handles the home-automation shape: entity_id, from_state,
// to_state, area, timestamp, attributes.
func fromStateChange(raw map[string]any, zoneMap map[string]string) *SensorMessage {
	entityID := stringOr(raw, "entity_id", "unknown")

	// "binary_sensor.speaking_detected" -> "speaking"
	sensorType := "unknown"
	if parts := strings.Split(entityID, "."); len(parts) > 1 {
		sensorType = strings.ReplaceAll(parts[len(parts)-1], "_detected", "")
		sensorType = strings.ReplaceAll(sensorType, "_", " ")
	}

	area := stringOr(raw, "area", "unknown")
	zoneID := area
	if mapped, ok := zoneMap[area]; ok {
		zoneID = mapped
	}

	attributes, ok := raw["attributes"].(map[string]any)
	if !ok {
		attributes = map[string]any{}
	}

	return &SensorMessage{
		TS:         stringOr(raw, "timestamp", time.Now().Format(time.RFC3339)),
		SensorID:   entityID,
		SensorType: sensorType,
		ZoneID:     zoneID,
		SiteID:     DefaultSiteID,
		Floor:      DefaultFloor,
		Value: map[string]any{
			"state":          raw["to_state"],
			"previous_state": raw["from_state"],
			"attributes":     attributes,
		},
	}
}

// fromFlat handles the oldest shape: sensor, value, room. The original
// event time is not part of that shape, so the timestamp is conversion
// time — a known precision loss.
func fromFlat(raw map[string]any, zoneMap map[string]string) *SensorMessage {
	sensor := stringOr(raw, "sensor", "unknown")

	zoneID := "unknown"
	if room, ok := raw["room"].(string); ok {
		if mapped, found := zoneMap[room]; found {
			zoneID = mapped
		}
	}

	return &SensorMessage{
		TS:         time.Now().Format(time.RFC3339),
		SensorID:   sensor,
		SensorType: sensor,
		ZoneID:     zoneID,
		SiteID:     DefaultSiteID,
		Floor:      DefaultFloor,
		Value:      map[string]any{"reading": raw["value"]},
	}
}

// Normalize attempts strict canonical validation, then legacy conversion.
// ok is false when raw matched neither shape; callers must tag the payload
// with ValidationFailedKey and forward it rather than dropping it.
func Normalize(raw map[string]any, zoneMap map[string]string) (*SensorMessage, bool) {
	if msg, err := FromMap(raw); err == nil {
		return msg, true
	}
	if HasLegacyMarkers(raw) {
		return FromLegacy(raw, zoneMap), true
	}
	return nil, false
}

// Map renders the message back into its wire shape. The value and quality
// maps are shared, not copied, so pipeline stages can annotate them.
func (m *SensorMessage) Map() map[string]any {
	out := map[string]any{
		"ts":          m.TS,
		"sensor_id":   m.SensorID,
		"sensor_type": m.SensorType,
		"zone_id":     m.ZoneID,
		"site_id":     m.SiteID,
		"floor":       m.Floor,
		"value":       m.Value,
	}
	if m.Quality != nil {
		out["quality"] = m.Quality
	}
	return out
}

// EventTime parses the message timestamp. RFC3339 first, then a couple of
// ISO-8601 variants the legacy emitters produce.
func (m *SensorMessage) EventTime() (time.Time, error) {
	ts := strings.Replace(m.TS, "Z", "+00:00", 1)
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", m.TS)
}

func requiredString(raw map[string]any, key string) (string, error) {
	s, ok := raw[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("field %q missing or not a string", key)
	}
	return s, nil
}

func stringOr(raw map[string]any, key, fallback string) string {
	if s, ok := raw[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
