// Package filter implements the stateless view operations a display layer
// applies to a batch of entries: producer/level selection with stable time
// ordering, substring search, and cyclic match navigation.
package filter

import (
	"math"
	"slices"
	"strings"

	"github.com/atikulmunna/tailview/internal/model"
)

// Direction is a match-cursor movement.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Entries keeps entries whose producer and level are both selected, ordered
// by ascending timestamp. Entries without a timestamp sort last; ties are
// broken by ingestion sequence. The input is not modified.
func Entries(entries []model.LogEntry, producers []string, levels []model.Level) []model.LogEntry {
	producerSet := make(map[string]struct{}, len(producers))
	for _, p := range producers {
		producerSet[p] = struct{}{}
	}
	levelSet := make(map[model.Level]struct{}, len(levels))
	for _, l := range levels {
		levelSet[l] = struct{}{}
	}

	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := producerSet[e.Producer]; !ok {
			continue
		}
		if _, ok := levelSet[e.Level]; !ok {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, Compare)
	return out
}

// Compare orders entries by timestamp, then ingestion sequence.
func Compare(a, b model.LogEntry) int {
	at, bt := sortKey(a), sortKey(b)
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	case a.IngestSeq < b.IngestSeq:
		return -1
	case a.IngestSeq > b.IngestSeq:
		return 1
	}
	return 0
}

func sortKey(e model.LogEntry) int64 {
	if e.Timestamp == nil {
		return math.MaxInt64
	}
	return *e.Timestamp
}

// MatchIndices returns the positions of entries whose raw text contains
// query, case-insensitively. A blank query matches nothing.
func MatchIndices(entries []model.LogEntry, query string) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var idx []int
	for i, e := range entries {
		if strings.Contains(e.RawLower, q) {
			idx = append(idx, i)
		}
	}
	return idx
}

// NextCursor moves cursor through matches cyclically. It returns -1 when
// there are no matches. A cursor of -1 moves to the first match on Next.
func NextCursor(matches []int, cursor int, dir Direction) int {
	n := len(matches)
	if n == 0 {
		return -1
	}
	step := 1
	if dir == Prev {
		step = -1
	}
	c := (cursor + step) % n
	if c < 0 {
		c += n
	}
	return c
}
