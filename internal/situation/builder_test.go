package situation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func msg(sensorID, sensorType, zoneID string, score float64) map[string]any {
	value := map[string]any{"detected": true}
	if score > 0 {
		value["anomaly_score"] = score
	}
	return map[string]any{
		"ts":          "2025-10-14T10:30:00Z",
		"sensor_id":   sensorID,
		"sensor_type": sensorType,
		"zone_id":     zoneID,
		"value":       value,
	}
}

func TestEmptyBatchYieldsNothing(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	assert.Nil(t, b.Build(nil, &FloorPlan{}))
	assert.Nil(t, b.Build([]map[string]any{}, &FloorPlan{}))
}

func TestSingleSensorNeverCorroborates(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("motion_01", "motion", "lobby", 0),
		msg("motion_01", "motion", "lobby", 0),
	}
	assert.Nil(t, b.Build(batch, &FloorPlan{}))
}

func TestTwoSensorsCorroborate(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("door_01", "door", "lobby", 0),
	}
	sit := b.Build(batch, &FloorPlan{})
	require.NotNil(t, sit)
	assert.Equal(t, 0.8, sit.Confidence)
	assert.True(t, strings.HasPrefix(sit.ID, "sit-"))
	assert.Len(t, sit.Messages, 2)
}

func TestCorroborationSpansZones(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	// Distinct sensors in unrelated zones still corroborate: the gate is
	// batch-wide, not per-zone.
	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("motion_02", "motion", "kitchen", 0),
	}
	sit := b.Build(batch, &FloorPlan{})
	require.NotNil(t, sit)
	assert.Equal(t, []string{"lobby", "kitchen"}, sit.Features.Zones)
}

func TestFeatures(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("temp_01", "temperature", "lobby", 3.2),
		msg("motion_02", "motion", "kitchen", 0),
	}
	sit := b.Build(batch, &FloorPlan{})
	require.NotNil(t, sit)

	assert.Equal(t, map[string]int{"motion": 2, "temperature": 1}, sit.Features.EventCounts)
	assert.Equal(t, []string{"lobby", "kitchen"}, sit.Features.Zones)
	assert.Equal(t, []float64{0, 3.2, 0}, sit.Features.AnomalyScores)
}

func TestSituationIDsAreUniqueAndSortable(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("door_01", "door", "lobby", 0),
	}

	first := b.Build(batch, &FloorPlan{})
	second := b.Build(batch, &FloorPlan{})
	require.NotNil(t, first)
	require.NotNil(t, second)

	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, first.ID < second.ID)
}

func TestRequiresResponse(t *testing.T) {
	sit := &Situation{Messages: []map[string]any{msg("a", "motion", "lobby", 0)}}
	assert.False(t, sit.RequiresResponse())

	sit.Messages = append(sit.Messages, msg("b", "door", "lobby", 0))
	assert.True(t, sit.RequiresResponse())
}

func TestToPromptJSON(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	batch := []map[string]any{
		msg("motion_01", "motion", "lobby", 0),
		msg("door_01", "door", "lobby", 0),
	}
	sit := b.Build(batch, &FloorPlan{})
	require.NotNil(t, sit)

	prompt := sit.ToPromptJSON()
	assert.Equal(t, sit.ID, prompt["id"])
	assert.Equal(t, 2, prompt["message_count"])
	assert.Equal(t, []string{"lobby"}, prompt["zones"])
	assert.Equal(t, map[string]int{"motion": 1, "door": 1}, prompt["event_counts"])
	assert.Equal(t, 0.8, prompt["confidence"])
	assert.Equal(t, batch, prompt["messages"])
}

func TestMissingZoneFallsBackToUnknown(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	bare := map[string]any{"sensor_id": "x_01", "sensor_type": "motion", "value": map[string]any{}}
	batch := []map[string]any{bare, msg("door_01", "door", "lobby", 0)}

	sit := b.Build(batch, &FloorPlan{})
	require.NotNil(t, sit)
	assert.Equal(t, []string{"unknown", "lobby"}, sit.Features.Zones)
}
