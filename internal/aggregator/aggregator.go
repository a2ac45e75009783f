package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/tailview/internal/model"
)

const epsWindow = 5 * time.Second

// Stats holds a point-in-time snapshot of ingestion metrics.
type Stats struct {
	Uptime         string                `json:"uptime"`
	TotalEvents    int64                 `json:"total_events"`
	EPS            float64               `json:"eps"`
	LevelCounts    map[model.Level]int64 `json:"level_counts"`
	ProducerCounts map[string]int64      `json:"producer_counts"`
	DroppedLogs    int                   `json:"dropped_logs"`
	FilesWatched   int                   `json:"files_watched"`
	Inits          int64                 `json:"inits"`
	LastState      model.EmptyState      `json:"last_state,omitempty"`
	LastError      string                `json:"last_error,omitempty"`
}

// Aggregator consumes hub messages and computes time-windowed metrics.
type Aggregator struct {
	mu             sync.RWMutex
	startTime      time.Time
	totalEvents    int64
	levelCounts    map[model.Level]int64
	producerCounts map[string]int64
	inits          int64
	lastState      model.EmptyState
	lastError      string
	window         []time.Time // arrival times for EPS (last 5 seconds)
	dropped        func() int
	fileCount      func() int
	messages       <-chan model.Message
	now            func() time.Time
}

// New creates an Aggregator reading from a hub subscription.
// droppedFn and fileCountFn provide live values from the store and tailer.
func New(messages <-chan model.Message, droppedFn func() int, fileCountFn func() int) *Aggregator {
	return &Aggregator{
		startTime:      time.Now(),
		levelCounts:    make(map[model.Level]int64),
		producerCounts: make(map[string]int64),
		dropped:        droppedFn,
		fileCount:      fileCountFn,
		messages:       messages,
		now:            time.Now,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	levels := make(map[model.Level]int64, len(a.levelCounts))
	for k, v := range a.levelCounts {
		levels[k] = v
	}
	producers := make(map[string]int64, len(a.producerCounts))
	for k, v := range a.producerCounts {
		producers[k] = v
	}

	cutoff := a.now().Add(-epsWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:         time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEvents:    a.totalEvents,
		EPS:            float64(recent) / epsWindow.Seconds(),
		LevelCounts:    levels,
		ProducerCounts: producers,
		DroppedLogs:    a.dropped(),
		FilesWatched:   a.fileCount(),
		Inits:          a.inits,
		LastState:      a.lastState,
		LastError:      a.lastError,
	}
}

// Start consumes messages until ctx is cancelled or the channel closes.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-a.messages:
			if !ok {
				return
			}
			a.record(msg)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(msg model.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch msg.Type {
	case model.MessageInit:
		a.inits++
		a.lastState = ""
	case model.MessageAppend:
		if msg.Delta == nil {
			return
		}
		now := a.now()
		for _, e := range msg.Delta.Entries {
			a.totalEvents++
			a.levelCounts[e.Level]++
			a.producerCounts[e.Producer]++
			a.window = append(a.window, now)
		}
		a.lastState = ""
	case model.MessageEmptyState:
		a.lastState = msg.Empty
	case model.MessageError:
		a.lastError = msg.Error
	}
}

// prune removes arrival times older than the EPS window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-epsWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
