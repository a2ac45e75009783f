package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/atikulmunna/tailview/internal/model"
)

func appendMsg(entries ...model.LogEntry) model.Message {
	return model.AppendMessage(model.Delta{Entries: entries})
}

func TestEPSCalculation(t *testing.T) {
	ch := make(chan model.Message, 100)
	agg := New(ch, func() int { return 0 }, func() int { return 2 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go agg.Start(ctx)

	for i := 0; i < 10; i++ {
		ch <- appendMsg(model.LogEntry{Level: model.LevelInfo, Producer: "cli"})
	}

	time.Sleep(200 * time.Millisecond)

	stats := agg.Snapshot()
	if stats.TotalEvents != 10 {
		t.Errorf("expected 10 total events, got %d", stats.TotalEvents)
	}
	if stats.EPS <= 0 {
		t.Errorf("expected positive EPS, got %f", stats.EPS)
	}
	if stats.FilesWatched != 2 {
		t.Errorf("expected 2 files watched, got %d", stats.FilesWatched)
	}
}

func TestLevelAndProducerCounts(t *testing.T) {
	agg := New(nil, func() int { return 7 }, func() int { return 1 })

	agg.record(appendMsg(
		model.LogEntry{Level: model.LevelInfo, Producer: "cli"},
		model.LogEntry{Level: model.LevelInfo, Producer: "auth"},
		model.LogEntry{Level: model.LevelError, Producer: "cli"},
	))
	agg.record(appendMsg(model.LogEntry{Level: model.LevelUnknown, Producer: "unknown"}))

	stats := agg.Snapshot()
	if stats.LevelCounts[model.LevelInfo] != 2 || stats.LevelCounts[model.LevelError] != 1 || stats.LevelCounts[model.LevelUnknown] != 1 {
		t.Errorf("unexpected level counts %v", stats.LevelCounts)
	}
	if stats.ProducerCounts["cli"] != 2 || stats.ProducerCounts["auth"] != 1 {
		t.Errorf("unexpected producer counts %v", stats.ProducerCounts)
	}
	if stats.DroppedLogs != 7 {
		t.Errorf("expected dropped 7, got %d", stats.DroppedLogs)
	}
}

func TestStateTracking(t *testing.T) {
	agg := New(nil, func() int { return 0 }, func() int { return 0 })

	agg.record(model.InitMessage(model.Snapshot{}))
	agg.record(model.EmptyStateMessage(model.StateWaitingLogsDir))
	agg.record(model.ErrorMessage("watch failed"))

	stats := agg.Snapshot()
	if stats.Inits != 1 {
		t.Errorf("expected 1 init, got %d", stats.Inits)
	}
	if stats.LastState != model.StateWaitingLogsDir {
		t.Errorf("expected waitingLogsDir, got %q", stats.LastState)
	}
	if stats.LastError != "watch failed" {
		t.Errorf("expected last error recorded, got %q", stats.LastError)
	}
}

func TestPruneDropsOldArrivals(t *testing.T) {
	now := time.Now()
	agg := New(nil, func() int { return 0 }, func() int { return 0 })
	agg.now = func() time.Time { return now }

	agg.record(appendMsg(model.LogEntry{}, model.LogEntry{}))
	now = now.Add(10 * time.Second)
	agg.prune()

	if len(agg.window) != 0 {
		t.Errorf("expected window pruned, got %d", len(agg.window))
	}
	if stats := agg.Snapshot(); stats.EPS != 0 || stats.TotalEvents != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
