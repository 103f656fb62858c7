// internal/storage/history.go
package storage

import "sync"

const defaultMaxTurns = 20

// Turn is one entry of the rolling conversation fed back to the narration
// model: "user" turns carry situation JSON, "assistant" turns carry the
// generated response.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is a capped in-memory ring of chat turns. Oldest turns drop off
// as new ones arrive; nothing is persisted across restarts.
type History struct {
	mu       sync.RWMutex
	turns    []Turn
	capacity int
}

func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &History{
		turns:    make([]Turn, 0, maxTurns),
		capacity: maxTurns,
	}
}

func (h *History) Add(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.turns) >= h.capacity {
		h.turns = h.turns[1:]
	}
	h.turns = append(h.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the history in arrival order.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
