package game

import (
	"sync"
)

// HistoryStore is a fixed-capacity ring of resolved rounds. Appends are O(1);
// the oldest entry is evicted once the ring is full. Stats feed UI trend
// displays only, never gameplay decisions.
type HistoryStore struct {
	mu       sync.RWMutex
	entries  []HistoryEntry
	capacity int
	next     int
	full     bool
}

func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryStore{
		entries:  make([]HistoryEntry, capacity),
		capacity: capacity,
	}
}

func (h *HistoryStore) Append(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = entry
	h.next = (h.next + 1) % h.capacity
	if h.next == 0 {
		h.full = true
	}
}

func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return h.capacity
	}
	return h.next
}

// Last returns up to n entries, most recent first.
func (h *HistoryStore) Last(n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.full {
		size = h.capacity
	}
	if n > size {
		n = size
	}

	out := make([]HistoryEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + h.capacity) % h.capacity
		out = append(out, h.entries[idx])
	}
	return out
}

// Latest returns the most recent entry, if any.
func (h *HistoryStore) Latest() (HistoryEntry, bool) {
	recent := h.Last(1)
	if len(recent) == 0 {
		return HistoryEntry{}, false
	}
	return recent[0], true
}

// StatsOverLast counts outcomes per category over the most recent n entries.
func (h *HistoryStore) StatsOverLast(n int) map[string]int {
	stats := make(map[string]int)
	for _, e := range h.Last(n) {
		stats[e.Outcome.Category()]++
	}
	return stats
}
