package export

import (
	"sync"
	"time"
)

// HistoryEntry records one completed export.
type HistoryEntry struct {
	Format      Format `json:"format"`
	EntityType  string `json:"entityType"`
	RecordCount int    `json:"recordCount"`
	Bytes       int    `json:"bytes"`
	CreatedAt   int64  `json:"createdAt"`
}

// History is a bounded, process-scoped ring of recent exports. Old entries
// are overwritten once capacity is reached; it never grows unbounded.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	next    int
	full    bool
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

// Record appends an entry, evicting the oldest when full.
func (h *History) Record(format Format, entityType string, recordCount, size int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = HistoryEntry{
		Format:      format,
		EntityType:  entityType,
		RecordCount: recordCount,
		Bytes:       size,
		CreatedAt:   time.Now().Unix(),
	}
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns entries newest first.
func (h *History) Recent() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.entries)
	}
	out := make([]HistoryEntry, 0, size)
	for i := 1; i <= size; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
