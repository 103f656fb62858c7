// internal/storage/recent.go
package storage

import "sync"

// Recent is a capped ring of the latest messages to pass through the
// pipeline, backing the dashboard's message feed.
type Recent struct {
	mu       sync.RWMutex
	buffer   []map[string]any
	capacity int
}

func NewRecent(capacity int) *Recent {
	if capacity <= 0 {
		capacity = 100
	}
	return &Recent{
		buffer:   make([]map[string]any, 0, capacity),
		capacity: capacity,
	}
}

func (r *Recent) Add(msg map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buffer) >= r.capacity {
		r.buffer = r.buffer[1:]
	}
	r.buffer = append(r.buffer, msg)
}

// Items returns a copy, oldest first.
func (r *Recent) Items() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]map[string]any, len(r.buffer))
	copy(out, r.buffer)
	return out
}
