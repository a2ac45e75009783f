// Package pipeline wires the watch orchestrator, tailer, parser and bounded
// store together and publishes display deltas on a hub.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atikulmunna/tailview/internal/hub"
	"github.com/atikulmunna/tailview/internal/locator"
	"github.com/atikulmunna/tailview/internal/model"
	"github.com/atikulmunna/tailview/internal/parser"
	"github.com/atikulmunna/tailview/internal/store"
	"github.com/atikulmunna/tailview/internal/tailer"
	"github.com/atikulmunna/tailview/internal/watcher"
)

// Options configures a Pipeline.
type Options struct {
	Locator          locator.Locator
	MaxLines         int
	InitialReadBytes int64
	ReadChunkBytes   int
	Debounce         time.Duration
	FilePattern      string
	Format           parser.Format
	Logger           *slog.Logger

	// Parser overrides the line parser built from Format.
	Parser parser.Parser
}

// Pipeline owns one ingestion session.
type Pipeline struct {
	mu      sync.Mutex
	parser  parser.Parser
	store   *store.Store
	tailer  *tailer.Tailer
	watcher *watcher.Watcher
	hub     *hub.Hub
	log     *slog.Logger
	session string
	view    model.View
}

// New builds a Pipeline publishing on h.
func New(opts Options, h *hub.Hub) (*Pipeline, error) {
	if opts.Locator == nil {
		return nil, fmt.Errorf("pipeline: locator is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	lp := opts.Parser
	if lp == nil {
		lp = parser.New(opts.Format)
	}

	p := &Pipeline{
		parser: lp,
		store:  store.New(opts.MaxLines),
		tailer: tailer.New(
			tailer.WithInitialReadBytes(opts.InitialReadBytes),
			tailer.WithReadChunkBytes(opts.ReadChunkBytes),
			tailer.WithLogger(log),
		),
		hub:     h,
		log:     log,
		session: uuid.NewString(),
		view:    model.View{FollowTail: true},
	}

	w, err := watcher.New(opts.Locator, p,
		watcher.WithPattern(opts.FilePattern),
		watcher.WithDebounce(opts.Debounce),
		watcher.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	p.watcher = w
	return p, nil
}

// Run publishes the initial snapshot and drives ingestion until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.publishInit()
	p.mu.Unlock()
	return p.watcher.Run(ctx)
}

// Reload clears the store and all tail state, publishes a fresh init, and
// rebuilds watches. Files are re-read from their tail windows.
func (p *Pipeline) Reload() {
	p.mu.Lock()
	p.log.Info("reload requested")
	p.store.Clear()
	p.tailer.ResetAll()
	p.session = uuid.NewString()
	p.publishInit()
	p.mu.Unlock()

	p.watcher.RequestRebuild()
}

// Clear empties the store but keeps tail offsets, so only new lines appear.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.Clear()
	p.publishInit()
}

// SetPaused suppresses append deltas while paused. Ingestion continues.
// Every change is announced with a state message; resuming then publishes a
// full snapshot.
func (p *Pipeline) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPaused(paused)
}

// TogglePause flips the paused flag and returns the new value.
func (p *Pipeline) TogglePause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPaused(!p.view.Paused)
	return p.view.Paused
}

func (p *Pipeline) setPaused(paused bool) {
	if p.view.Paused == paused {
		return
	}
	p.view.Paused = paused
	p.hub.Publish(model.StateMessage(p.view))
	if !paused {
		p.publishInit()
	}
}

// SetFollowTail records whether displays keep scrolled to the newest entry
// and announces the change.
func (p *Pipeline) SetFollowTail(follow bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.view.FollowTail == follow {
		return
	}
	p.view.FollowTail = follow
	p.hub.Publish(model.StateMessage(p.view))
}

// Snapshot returns the full current view.
func (p *Pipeline) Snapshot() model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// DroppedCount returns the store's cumulative drop count.
func (p *Pipeline) DroppedCount() int {
	return p.store.DroppedCount()
}

// TrackedFiles returns the number of files with tail state.
func (p *Pipeline) TrackedFiles() int {
	return p.tailer.Tracked()
}

// OnState implements watcher.Handler.
func (p *Pipeline) OnState(kind model.EmptyState) {
	p.log.Info("log directory status", "state", kind)
	p.hub.Publish(model.EmptyStateMessage(kind))
}

// OnChange implements watcher.Handler: tail, parse, store, publish.
func (p *Pipeline) OnChange(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.tailer.Poll(path)
	if res.FileMissing {
		if res.Err != nil {
			p.log.Debug("transient read failure", "path", path, "error", res.Err)
		}
		return
	}
	if len(res.Lines) == 0 {
		return
	}

	batch := make([]model.LogEntry, len(res.Lines))
	for i, line := range res.Lines {
		batch[i] = p.parser.Parse(line, path)
	}
	appended := p.store.Append(batch)
	if p.view.Paused {
		return
	}
	p.hub.Publish(model.AppendMessage(model.Delta{
		Entries:        appended.Accepted,
		DroppedCount:   appended.DroppedCount,
		KnownProducers: p.store.KnownProducers(),
	}))
}

// OnDelete implements watcher.Handler.
func (p *Pipeline) OnDelete(path string) {
	p.log.Debug("log file removed", "path", path)
	p.tailer.Remove(path)
}

// OnError implements watcher.Handler.
func (p *Pipeline) OnError(err error) {
	p.hub.Publish(model.ErrorMessage(err.Error()))
}

// publishInit must be called with mu held.
func (p *Pipeline) publishInit() {
	p.hub.Publish(model.InitMessage(p.snapshot()))
}

func (p *Pipeline) snapshot() model.Snapshot {
	snap := p.store.Snapshot()
	return model.Snapshot{
		Session:        p.session,
		Entries:        snap.Entries,
		DroppedCount:   snap.DroppedCount,
		KnownProducers: snap.KnownProducers,
		View:           p.view,
	}
}
