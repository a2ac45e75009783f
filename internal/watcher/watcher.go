package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/atikulmunna/tailview/internal/locator"
	"github.com/atikulmunna/tailview/internal/model"
)

// DefaultDebounce is how long change notifications are coalesced.
const DefaultDebounce = 75 * time.Millisecond

// maxResolvePasses bounds how often a rebuild re-resolves while parent
// directories keep appearing.
const maxResolvePasses = 3

// Handler receives the orchestrator's callbacks. All calls are made from the
// goroutine running Run, one at a time.
type Handler interface {
	// OnState reports a directory status with nothing to ingest.
	OnState(kind model.EmptyState)
	// OnChange is called at most once per path per debounce window.
	OnChange(path string)
	OnDelete(path string)
	OnError(err error)
}

// Watcher drives ingestion from directory status and file-system events.
//
// It watches the workspace (for the root marker), the root marker (for the
// log directory) and the flat log directory itself. Changes to the first two
// rebuild everything; changes inside the log directory are debounced and
// handed to the Handler.
type Watcher struct {
	loc      locator.Locator
	handler  Handler
	pattern  string
	debounce time.Duration
	log      *slog.Logger

	fsw       *fsnotify.Watcher
	status    locator.Status
	watched   map[string]struct{}
	pending   map[string]struct{}
	timer     *time.Timer
	timerC    <-chan time.Time
	rebuildCh chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPattern restricts ingestion to log directory entries whose base name
// matches the doublestar pattern.
func WithPattern(pattern string) Option {
	return func(w *Watcher) {
		if pattern != "" {
			w.pattern = pattern
		}
	}
}

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a Watcher. Nothing is watched until Run.
func New(loc locator.Locator, h Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		loc:       loc,
		handler:   h,
		pattern:   "*",
		debounce:  DefaultDebounce,
		log:       slog.Default(),
		fsw:       fsw,
		watched:   make(map[string]struct{}),
		pending:   make(map[string]struct{}),
		rebuildCh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(w)
	}
	if !doublestar.ValidatePattern(w.pattern) {
		fsw.Close()
		return nil, fmt.Errorf("invalid file pattern %q", w.pattern)
	}
	return w, nil
}

// Run builds the initial watches and processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.rebuild()
	for {
		select {
		case <-ctx.Done():
			w.teardown()
			return nil

		case <-w.rebuildCh:
			w.rebuild()

		case <-w.timerC:
			w.flush()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
			w.handler.OnError(err)
		}
	}
}

// RequestRebuild asks Run to tear down and re-derive all watches. Requests
// made while one is already queued are coalesced.
func (w *Watcher) RequestRebuild() {
	select {
	case w.rebuildCh <- struct{}{}:
	default:
	}
}

// rebuild tears everything down and re-derives state from the locator.
// Pending debounced paths are dropped.
func (w *Watcher) rebuild() {
	w.teardown()

	st := w.watchParents()
	w.status = st
	w.log.Debug("rebuilding watches", "workspace", st.Workspace, "logDir", st.LogDir, "state", st.Empty)

	if st.Empty == model.StateNoWorkspace {
		w.handler.OnState(st.Empty)
		return
	}
	if !st.Ready() {
		w.handler.OnState(st.Empty)
		return
	}

	// Watch before listing so files created in between are not missed.
	w.add(st.LogDir)
	files, err := w.listFiles(st.LogDir)
	if err != nil {
		w.handler.OnError(fmt.Errorf("list %s: %w", st.LogDir, err))
	}
	if len(files) == 0 {
		w.handler.OnState(model.StateNoFiles)
		return
	}
	for _, f := range files {
		w.enqueue(f)
	}
}

// watchParents watches the workspace and root marker directories that exist,
// then resolves again: a directory created before its parent was watched
// raises no event, so the status is re-read until it stops changing.
func (w *Watcher) watchParents() locator.Status {
	st := w.loc.Resolve()
	for i := 0; i < maxResolvePasses; i++ {
		w.addParents(st)
		again := w.loc.Resolve()
		if again.Empty == st.Empty {
			return again
		}
		st = again
	}
	w.addParents(st)
	return st
}

func (w *Watcher) addParents(st locator.Status) {
	if st.Empty == model.StateNoWorkspace {
		return
	}
	w.add(st.Workspace)
	if st.Empty != model.StateNoLogRoot {
		w.add(st.RootDir)
	}
}

// handle routes one fsnotify event.
func (w *Watcher) handle(ev fsnotify.Event) {
	if w.isControlPath(ev.Name) {
		if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			w.log.Debug("log root changed", "path", ev.Name, "op", ev.Op.String())
			w.rebuild()
		}
		return
	}

	if !w.status.Ready() || filepath.Dir(ev.Name) != w.status.LogDir || !w.matches(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
		w.handler.OnDelete(ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.enqueue(ev.Name)
	}
}

func (w *Watcher) isControlPath(path string) bool {
	if w.status.Workspace == "" {
		return false
	}
	return path == w.status.RootDir || path == w.status.LogDir
}

// enqueue marks path dirty and arms the debounce timer if it is idle.
func (w *Watcher) enqueue(path string) {
	w.pending[path] = struct{}{}
	if w.timer != nil {
		return
	}
	w.timer = time.NewTimer(w.debounce)
	w.timerC = w.timer.C
}

// flush hands every pending path to the handler exactly once.
func (w *Watcher) flush() {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	w.pending = make(map[string]struct{})
	w.timer = nil
	w.timerC = nil

	for _, p := range paths {
		w.handler.OnChange(p)
	}
}

func (w *Watcher) teardown() {
	for p := range w.watched {
		if err := w.fsw.Remove(p); err != nil {
			w.log.Debug("remove watch", "path", p, "error", err)
		}
	}
	w.watched = make(map[string]struct{})
	w.pending = make(map[string]struct{})
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = nil
	w.timerC = nil
}

func (w *Watcher) add(dir string) {
	if _, ok := w.watched[dir]; ok {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn("cannot watch directory", "path", dir, "error", err)
		w.handler.OnError(fmt.Errorf("watch %s: %w", dir, err))
		return
	}
	w.watched[dir] = struct{}{}
}

// listFiles returns the regular top-level files of dir that match the pattern.
func (w *Watcher) listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if w.matches(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

func (w *Watcher) matches(path string) bool {
	ok, err := doublestar.Match(w.pattern, filepath.Base(path))
	return err == nil && ok
}
