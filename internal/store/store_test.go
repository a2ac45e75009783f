package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/atikulmunna/tailview/internal/model"
)

func entry(i int) model.LogEntry {
	producer := "dev-server"
	if i%2 == 0 {
		producer = "cli"
	}
	return model.LogEntry{
		ID:         fmt.Sprintf("id-%d", i),
		Producer:   producer,
		Level:      model.LevelInfo,
		Message:    fmt.Sprintf("message-%d", i),
		Raw:        fmt.Sprintf("raw-%d", i),
		RawLower:   fmt.Sprintf("raw-%d", i),
		SourceFile: "debug.log",
		IngestSeq:  uint64(i),
	}
}

func entries(from, to int) []model.LogEntry {
	var out []model.LogEntry
	for i := from; i <= to; i++ {
		out = append(out, entry(i))
	}
	return out
}

func ids(es []model.LogEntry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestBoundedWithDropCount(t *testing.T) {
	s := New(3)
	res := s.Append(entries(1, 4))

	if len(res.Accepted) != 4 {
		t.Errorf("expected whole batch accepted, got %d", len(res.Accepted))
	}
	if res.DroppedCount != 1 {
		t.Errorf("expected dropped 1, got %d", res.DroppedCount)
	}

	snap := s.Snapshot()
	if got, want := ids(snap.Entries), []string{"id-2", "id-3", "id-4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if snap.DroppedCount != 1 {
		t.Errorf("expected snapshot dropped 1, got %d", snap.DroppedCount)
	}
}

func TestDropCountAccumulatesAcrossBatches(t *testing.T) {
	s := New(2)
	s.Append(entries(1, 2))
	s.Append(entries(3, 3))
	res := s.Append(entries(4, 8))

	if res.DroppedCount != 6 {
		t.Errorf("expected dropped 6, got %d", res.DroppedCount)
	}
	if got, want := ids(s.Snapshot().Entries), []string{"id-7", "id-8"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if s.Len() > s.Capacity() {
		t.Errorf("length %d exceeds capacity %d", s.Len(), s.Capacity())
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	s := New(1)
	s.Append(entries(1, 3))

	res := s.Append(nil)
	if len(res.Accepted) != 0 {
		t.Errorf("expected empty accepted, got %d", len(res.Accepted))
	}
	if res.DroppedCount != 2 {
		t.Errorf("expected cumulative dropped 2, got %d", res.DroppedCount)
	}
	if s.Len() != 1 {
		t.Errorf("expected len 1, got %d", s.Len())
	}
}

func TestKnownProducersSorted(t *testing.T) {
	s := New(10)
	s.Append(entries(1, 2))
	s.Append(entries(3, 6))

	if got, want := s.Snapshot().KnownProducers, []string{"cli", "dev-server"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestProducersSurviveEviction(t *testing.T) {
	s := New(1)
	s.Append([]model.LogEntry{entry(1), entry(2)})

	if got := s.KnownProducers(); len(got) != 2 {
		t.Errorf("expected both producers remembered, got %v", got)
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New(2)
	s.Append(entries(1, 5))
	s.Clear()

	snap := s.Snapshot()
	if len(snap.Entries) != 0 || snap.DroppedCount != 0 || len(snap.KnownProducers) != 0 {
		t.Errorf("expected empty store after clear, got %+v", snap)
	}

	s.Append(entries(6, 6))
	if got := ids(s.Snapshot().Entries); !reflect.DeepEqual(got, []string{"id-6"}) {
		t.Errorf("expected [id-6] after clear, got %v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(3)
	s.Append(entries(1, 2))

	snap := s.Snapshot()
	snap.Entries[0].ID = "mutated"

	if s.Snapshot().Entries[0].ID != "id-1" {
		t.Error("snapshot aliases internal storage")
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := New(100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(entries(i, i))
			}
		}()
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("expected full store, got %d", s.Len())
	}
	if s.DroppedCount() != 300 {
		t.Errorf("expected 300 dropped, got %d", s.DroppedCount())
	}
}

func TestMinimumCapacity(t *testing.T) {
	s := New(0)
	if s.Capacity() != 1 {
		t.Errorf("expected capacity 1, got %d", s.Capacity())
	}
}
