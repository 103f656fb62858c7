package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalizeSingleCanonical(t *testing.T) {
	text := Naturalize(map[string]any{
		"sensor_type": "temperature",
		"zone_id":     "lobby",
		"value":       map[string]any{"celsius": 22.5},
	})
	assert.Equal(t, "lobby temperature: map[celsius:22.5]", text)
}

func TestNaturalizeSingleMissingZone(t *testing.T) {
	text := Naturalize(map[string]any{
		"sensor_type": "motion",
		"value":       map[string]any{"detected": true},
	})
	assert.Contains(t, text, "unknown location motion")
}

func TestNaturalizeLegacyShape(t *testing.T) {
	text := Naturalize(map[string]any{
		"sensor": "temp",
		"room":   "kitchen",
		"value":  21.0,
	})
	assert.Equal(t, "kitchen temp: 21", text)
}

func TestNaturalizeBatch(t *testing.T) {
	text := Naturalize(map[string]any{
		"messages": []map[string]any{
			{"sensor_type": "motion", "zone_id": "lobby", "value": map[string]any{"detected": true}},
			{"sensor_type": "door", "zone_id": "lobby", "value": map[string]any{"open": true}},
		},
	})
	assert.Contains(t, text, "lobby motion")
	assert.Contains(t, text, "lobby door")
}

func TestNaturalizeDecodedBatch(t *testing.T) {
	// JSON decoding yields []any, not []map[string]any.
	text := Naturalize(map[string]any{
		"messages": []any{
			map[string]any{"sensor_type": "motion", "zone_id": "lobby", "value": map[string]any{}},
		},
	})
	assert.Contains(t, text, "lobby motion")
}

func TestNaturalizeUnrecognizedShapeStringifies(t *testing.T) {
	text := Naturalize(map[string]any{"weird": "payload"})
	assert.Equal(t, `{"weird":"payload"}`, text)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 2}, []float32{5, 5}), 1e-9)
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
