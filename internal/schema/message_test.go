package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapCanonical(t *testing.T) {
	msg, err := FromMap(map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   "motion_01",
		"sensor_type": "motion",
		"zone_id":     "lobby",
		"value":       map[string]any{"detected": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "motion_01", msg.SensorID)
	assert.Equal(t, "motion", msg.SensorType)
	assert.Equal(t, "lobby", msg.ZoneID)
	assert.Equal(t, DefaultSiteID, msg.SiteID)
	assert.Equal(t, DefaultFloor, msg.Floor)
}

func TestFromMapExplicitSiteAndFloor(t *testing.T) {
	msg, err := FromMap(map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   "temp_01",
		"sensor_type": "temperature",
		"zone_id":     "conf_a",
		"site_id":     "annex",
		"floor":       float64(3),
		"value":       map[string]any{"celsius": 21.0},
		"quality":     map[string]any{"battery_pct": 80.0},
	})
	require.NoError(t, err)

	assert.Equal(t, "annex", msg.SiteID)
	assert.Equal(t, 3, msg.Floor)
	assert.Equal(t, 80.0, msg.Quality["battery_pct"])
}

func TestFromMapMissingFields(t *testing.T) {
	_, err := FromMap(map[string]any{"sensor_id": "temp_01"})
	require.Error(t, err)
}

func TestFromMapScalarValueRejected(t *testing.T) {
	_, err := FromMap(map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   "temp_01",
		"sensor_type": "temperature",
		"zone_id":     "lobby",
		"value":       22.5,
	})
	require.Error(t, err)
}

func TestFromLegacyFlatShape(t *testing.T) {
	zoneMap := map[string]string{"r1": "zone_r1"}

	msg := FromLegacy(map[string]any{"sensor": "s1", "value": float64(10), "room": "r1"}, zoneMap)

	assert.Equal(t, "s1", msg.SensorID)
	assert.Equal(t, "s1", msg.SensorType)
	assert.Equal(t, "zone_r1", msg.ZoneID)
	assert.Equal(t, float64(10), msg.Value["reading"])
	assert.NotEmpty(t, msg.TS)
}

func TestFromLegacyFlatShapeUnmappedRoom(t *testing.T) {
	msg := FromLegacy(map[string]any{"sensor": "s1", "value": float64(10), "room": "attic"}, nil)
	assert.Equal(t, "unknown", msg.ZoneID)
}

func TestFromLegacyStateChangeShape(t *testing.T) {
	zoneMap := map[string]string{"Living Room": "living"}

	msg := FromLegacy(map[string]any{
		"entity_id":  "binary_sensor.speaking_detected",
		"from_state": "off",
		"to_state":   "on",
		"area":       "Living Room",
		"timestamp":  "2025-10-14T10:30:00Z",
		"attributes": map[string]any{"friendly_name": "Speech"},
	}, zoneMap)

	assert.Equal(t, "binary_sensor.speaking_detected", msg.SensorID)
	assert.Equal(t, "speaking", msg.SensorType)
	assert.Equal(t, "living", msg.ZoneID)
	assert.Equal(t, "2025-10-14T10:30:00Z", msg.TS)
	assert.Equal(t, "on", msg.Value["state"])
	assert.Equal(t, "off", msg.Value["previous_state"])
}

func TestFromLegacyStateChangeUnmappedAreaFallsBack(t *testing.T) {
	msg := FromLegacy(map[string]any{
		"entity_id": "binary_sensor.motion_detected",
		"area":      "Garage",
	}, map[string]string{})
	assert.Equal(t, "Garage", msg.ZoneID)
}

func TestNormalizePrefersCanonical(t *testing.T) {
	msg, ok := Normalize(map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   "temp_01",
		"sensor_type": "temperature",
		"zone_id":     "lobby",
		"value":       map[string]any{"celsius": 22.0},
	}, nil)
	require.True(t, ok)
	assert.Equal(t, "temp_01", msg.SensorID)
}

func TestNormalizeLegacyFallback(t *testing.T) {
	msg, ok := Normalize(map[string]any{"sensor": "s1", "value": float64(1), "room": "r1"}, nil)
	require.True(t, ok)
	assert.Equal(t, "s1", msg.SensorID)
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	_, ok := Normalize(map[string]any{"unrelated": "payload"}, nil)
	assert.False(t, ok)
}

func TestMapRoundTrip(t *testing.T) {
	msg, err := FromMap(map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   "temp_01",
		"sensor_type": "temperature",
		"zone_id":     "lobby",
		"value":       map[string]any{"celsius": 22.0},
	})
	require.NoError(t, err)

	out := msg.Map()
	assert.Equal(t, "temp_01", out["sensor_id"])
	assert.Equal(t, "lobby", out["zone_id"])
	assert.Equal(t, DefaultSiteID, out["site_id"])
	_, hasQuality := out["quality"]
	assert.False(t, hasQuality)
}

func TestEventTimeVariants(t *testing.T) {
	for _, ts := range []string{
		"2025-10-14T10:30:00Z",
		"2025-10-14T10:30:00+02:00",
		"2025-10-14T10:30:00.123456",
		"2025-10-14T10:30:00",
	} {
		msg := &SensorMessage{TS: ts}
		_, err := msg.EventTime()
		assert.NoError(t, err, "timestamp %q", ts)
	}

	msg := &SensorMessage{TS: "not a timestamp"}
	_, err := msg.EventTime()
	assert.Error(t, err)
}
