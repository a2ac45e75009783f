package filter

import (
	"reflect"
	"testing"

	"github.com/atikulmunna/tailview/internal/model"
)

func ts(ms int64) *int64 { return &ms }

func mk(seq uint64, producer string, level model.Level, stamp *int64, raw string) model.LogEntry {
	return model.LogEntry{
		Producer:  producer,
		Level:     level,
		Timestamp: stamp,
		IngestSeq: seq,
		Raw:       raw,
		RawLower:  raw,
	}
}

func seqs(es []model.LogEntry) []uint64 {
	out := make([]uint64, len(es))
	for i, e := range es {
		out[i] = e.IngestSeq
	}
	return out
}

var allLevels = model.AllLevels

func TestEntriesSortsByTimestamp(t *testing.T) {
	in := []model.LogEntry{
		mk(1, "cli", model.LevelInfo, ts(3000), "c"),
		mk(2, "cli", model.LevelInfo, ts(1000), "a"),
		mk(3, "cli", model.LevelInfo, ts(2000), "b"),
	}

	got := Entries(in, []string{"cli"}, allLevels)

	if !reflect.DeepEqual(seqs(got), []uint64{2, 3, 1}) {
		t.Errorf("expected ascending timestamp order, got %v", seqs(got))
	}
	if in[0].IngestSeq != 1 {
		t.Error("input slice was reordered")
	}
}

func TestEntriesTieBreakAndMissingLast(t *testing.T) {
	in := []model.LogEntry{
		mk(5, "cli", model.LevelInfo, nil, "x"),
		mk(4, "cli", model.LevelInfo, ts(1000), "y"),
		mk(2, "cli", model.LevelInfo, ts(1000), "z"),
		mk(1, "cli", model.LevelInfo, nil, "w"),
	}

	got := Entries(in, []string{"cli"}, allLevels)

	if !reflect.DeepEqual(seqs(got), []uint64{2, 4, 1, 5}) {
		t.Errorf("expected [2 4 1 5], got %v", seqs(got))
	}
}

func TestEntriesFiltersProducerAndLevel(t *testing.T) {
	in := []model.LogEntry{
		mk(1, "cli", model.LevelError, ts(1), "a"),
		mk(2, "auth", model.LevelError, ts(2), "b"),
		mk(3, "cli", model.LevelDebug, ts(3), "c"),
		mk(4, "cli", model.LevelUnknown, nil, "d"),
	}

	got := Entries(in, []string{"cli"}, []model.Level{model.LevelError, model.LevelUnknown})
	if !reflect.DeepEqual(seqs(got), []uint64{1, 4}) {
		t.Errorf("expected [1 4], got %v", seqs(got))
	}

	if got := Entries(in, nil, allLevels); len(got) != 0 {
		t.Errorf("expected nothing with no producers selected, got %d", len(got))
	}
}

func TestMatchIndices(t *testing.T) {
	in := []model.LogEntry{
		mk(1, "cli", model.LevelInfo, nil, "disk full"),
		mk(2, "cli", model.LevelInfo, nil, "all good"),
		mk(3, "cli", model.LevelInfo, nil, "disk ok"),
	}

	if got := MatchIndices(in, "  DISK "); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("expected [0 2], got %v", got)
	}
	if got := MatchIndices(in, "   "); len(got) != 0 {
		t.Errorf("expected no matches for blank query, got %v", got)
	}
	if got := MatchIndices(in, "absent"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestNextCursor(t *testing.T) {
	matches := []int{4, 9, 12}

	tests := []struct {
		cursor int
		dir    Direction
		want   int
	}{
		{2, Next, 0},
		{0, Prev, 2},
		{0, Next, 1},
		{1, Prev, 0},
		{-1, Next, 0},
		{-1, Prev, 1},
	}
	for _, tt := range tests {
		if got := NextCursor(matches, tt.cursor, tt.dir); got != tt.want {
			t.Errorf("NextCursor(%d, %s) = %d, want %d", tt.cursor, tt.dir, got, tt.want)
		}
	}

	for _, dir := range []Direction{Next, Prev} {
		if got := NextCursor(nil, 3, dir); got != -1 {
			t.Errorf("expected -1 with no matches, got %d", got)
		}
	}
}
