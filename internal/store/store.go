package store

import (
	"sort"
	"sync"

	"github.com/atikulmunna/tailview/internal/model"
)

// AppendResult reports what one Append call offered and the running drop count.
type AppendResult struct {
	// Accepted is the full input batch, including entries that were evicted
	// again by the same call.
	Accepted     []model.LogEntry
	DroppedCount int
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Entries        []model.LogEntry
	DroppedCount   int
	KnownProducers []string
}

// Store is a bounded, append-only ring of log entries. When full, the oldest
// entries are evicted and counted as dropped. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	ring      []model.LogEntry
	start     int // index of the oldest entry
	count     int
	dropped   int
	producers map[string]struct{}
}

// New creates a Store holding at most maxLines entries. Values below 1 are raised to 1.
func New(maxLines int) *Store {
	if maxLines < 1 {
		maxLines = 1
	}
	return &Store{
		ring:      make([]model.LogEntry, maxLines),
		producers: make(map[string]struct{}),
	}
}

// Capacity returns maxLines.
func (s *Store) Capacity() int {
	return len(s.ring)
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Append adds batch in order, evicting from the oldest end on overflow.
func (s *Store) Append(batch []model.LogEntry) AppendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 {
		return AppendResult{Accepted: []model.LogEntry{}, DroppedCount: s.dropped}
	}

	capacity := len(s.ring)
	for _, e := range batch {
		s.producers[e.Producer] = struct{}{}
		if s.count < capacity {
			s.ring[(s.start+s.count)%capacity] = e
			s.count++
			continue
		}
		s.ring[s.start] = e
		s.start = (s.start + 1) % capacity
		s.dropped++
	}

	return AppendResult{Accepted: batch, DroppedCount: s.dropped}
}

// Clear drops all entries, forgets producers, and resets the drop count.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.ring)
	s.start = 0
	s.count = 0
	s.dropped = 0
	s.producers = make(map[string]struct{})
}

// DroppedCount returns the number of entries evicted since the last Clear.
func (s *Store) DroppedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// KnownProducers returns the distinct producers seen since the last Clear, sorted.
func (s *Store) KnownProducers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedProducers()
}

// Snapshot returns a copy of the held entries, oldest first.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.LogEntry, s.count)
	capacity := len(s.ring)
	for i := 0; i < s.count; i++ {
		entries[i] = s.ring[(s.start+i)%capacity]
	}
	return Snapshot{
		Entries:        entries,
		DroppedCount:   s.dropped,
		KnownProducers: s.sortedProducers(),
	}
}

func (s *Store) sortedProducers() []string {
	out := make([]string, 0, len(s.producers))
	for p := range s.producers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
