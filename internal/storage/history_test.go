package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryOrderAndLen(t *testing.T) {
	h := NewHistory(20)

	h.Add("user", "first")
	h.Add("assistant", "second")

	assert.Equal(t, 2, h.Len())
	turns := h.Turns()
	assert.Equal(t, Turn{Role: "user", Content: "first"}, turns[0])
	assert.Equal(t, Turn{Role: "assistant", Content: "second"}, turns[1])
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 0; i < 5; i++ {
		h.Add("user", fmt.Sprintf("turn %d", i))
	}

	turns := h.Turns()
	assert.Equal(t, 3, len(turns))
	assert.Equal(t, "turn 2", turns[0].Content)
	assert.Equal(t, "turn 4", turns[2].Content)
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)

	for i := 0; i < defaultMaxTurns+5; i++ {
		h.Add("user", "x")
	}
	assert.Equal(t, defaultMaxTurns, h.Len())
}

func TestHistoryTurnsIsACopy(t *testing.T) {
	h := NewHistory(5)
	h.Add("user", "original")

	turns := h.Turns()
	turns[0].Content = "mutated"

	assert.Equal(t, "original", h.Turns()[0].Content)
}

func TestRecentEvictsOldest(t *testing.T) {
	r := NewRecent(2)

	r.Add(map[string]any{"n": 1})
	r.Add(map[string]any{"n": 2})
	r.Add(map[string]any{"n": 3})

	items := r.Items()
	assert.Equal(t, 2, len(items))
	assert.Equal(t, 2, items[0]["n"])
	assert.Equal(t, 3, items[1]["n"])
}

func TestRecentEmpty(t *testing.T) {
	r := NewRecent(10)
	assert.Empty(t, r.Items())
}
