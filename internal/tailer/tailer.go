package tailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	DefaultInitialReadBytes = 256 * 1024
	DefaultReadChunkBytes   = 64 * 1024
)

// Result is what one Attach or Poll produced.
type Result struct {
	Lines       []string
	FileMissing bool
	// Err is the cause when FileMissing was reported for a reason other than
	// the file not existing. It is informational; the next event retries.
	Err error
}

// state tracks one file. It is a value type: reads copy it out, work on the
// copy without holding the lock, and write it back only if gen still matches.
type state struct {
	path     string
	offset   int64
	lastSize int64
	leftover []byte
	// cut is set while the bytes before the first line-feed belong to a line
	// whose beginning lies before the attach window.
	cut bool
	gen uint64
}

// Tailer reads newly appended lines from files it has attached to.
type Tailer struct {
	mu          sync.Mutex
	files       map[string]state
	nextGen     uint64
	initialRead int64
	chunk       int
	log         *slog.Logger
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithInitialReadBytes bounds how much of an existing file is read on attach.
func WithInitialReadBytes(n int64) Option {
	return func(t *Tailer) {
		if n > 0 {
			t.initialRead = n
		}
	}
}

// WithReadChunkBytes sets the size of each read call.
func WithReadChunkBytes(n int) Option {
	return func(t *Tailer) {
		if n > 0 {
			t.chunk = n
		}
	}
}

// WithLogger sets the logger used for transient read failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tailer) {
		if l != nil {
			t.log = l
		}
	}
}

// New creates a Tailer.
func New(opts ...Option) *Tailer {
	t := &Tailer{
		files:       make(map[string]state),
		initialRead: DefaultInitialReadBytes,
		chunk:       DefaultReadChunkBytes,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Attach starts tracking path and returns the lines in its trailing window.
// Any previous state for path is replaced.
//
// When the window does not start at byte 0, everything up to the first
// line-feed is discarded since its beginning was cut off, including bytes
// that only arrive in later polls. If a window starting at byte 0 yields no
// complete line, the remaining bytes are emitted as one line so a short
// unterminated file still surfaces.
func (t *Tailer) Attach(path string) Result {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		t.Remove(path)
		return missing(err)
	}

	size := info.Size()
	st := state{
		path:     path,
		offset:   max(0, size-t.initialRead),
		lastSize: size,
		cut:      size > t.initialRead,
	}

	t.mu.Lock()
	st.gen = t.bumpGen()
	t.files[path] = st
	t.mu.Unlock()

	lines, err := t.readRange(&st, size)
	if err != nil {
		t.dropIfGen(path, st.gen)
		return missing(err)
	}
	if len(lines) == 0 && len(st.leftover) > 0 && !st.cut {
		lines = append(lines, toLine(st.leftover))
		st.leftover = nil
	}

	if !t.commit(st) {
		return Result{}
	}
	return Result{Lines: lines}
}

// Poll returns the complete lines appended since the last read. Untracked
// paths are attached. A file that shrank below the stored offset is treated
// as replaced and re-read from the start.
func (t *Tailer) Poll(path string) Result {
	t.mu.Lock()
	st, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return t.Attach(path)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		t.dropIfGen(path, st.gen)
		return missing(err)
	}

	size := info.Size()
	if size < st.offset {
		t.log.Debug("file truncated, rereading from start", "path", path, "size", size, "offset", st.offset)
		st.offset = 0
		st.leftover = nil
		st.cut = false
	}
	st.lastSize = size
	if size == st.offset {
		t.commit(st)
		return Result{}
	}

	lines, err := t.readRange(&st, size)
	if err != nil {
		t.dropIfGen(path, st.gen)
		return missing(err)
	}
	if !t.commit(st) {
		return Result{}
	}
	return Result{Lines: lines}
}

// Remove forgets path. A read in flight for it is discarded when it finishes.
func (t *Tailer) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, path)
}

// ResetAll forgets every file.
func (t *Tailer) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]state)
}

// Tracked returns the number of files with tail state.
func (t *Tailer) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

// Offset returns the stored read offset for path.
func (t *Tailer) Offset(path string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.files[path]
	return st.offset, ok
}

// commit writes st back if nobody removed, reset, or advanced it meanwhile.
func (t *Tailer) commit(st state) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.files[st.path]
	if !ok || cur.gen != st.gen {
		t.log.Debug("discarding stale read", "path", st.path)
		return false
	}
	st.gen = t.bumpGen()
	t.files[st.path] = st
	return true
}

func (t *Tailer) dropIfGen(path string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.files[path]; ok && cur.gen == gen {
		delete(t.files, path)
	}
}

// bumpGen must be called with mu held.
func (t *Tailer) bumpGen() uint64 {
	t.nextGen++
	return t.nextGen
}

// readRange reads [st.offset, end) in chunks, splitting on line-feeds.
// The unterminated tail is kept in st.leftover unless st.cut is still set,
// in which case it is part of the cut line and dropped.
func (t *Tailer) readRange(st *state, end int64) ([]string, error) {
	if end <= st.offset {
		return nil, nil
	}

	f, err := os.Open(st.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	buf := make([]byte, min(int64(t.chunk), end-st.offset))
	for st.offset < end {
		want := min(int64(len(buf)), end-st.offset)
		n, err := f.ReadAt(buf[:want], st.offset)
		if n > 0 {
			st.offset += int64(n)
			data := make([]byte, 0, len(st.leftover)+n)
			data = append(data, st.leftover...)
			data = append(data, buf[:n]...)
			for {
				i := bytes.IndexByte(data, '\n')
				if i < 0 {
					break
				}
				if st.cut {
					st.cut = false
				} else {
					lines = append(lines, toLine(data[:i]))
				}
				data = data[i+1:]
			}
			if st.cut {
				st.leftover = nil
			} else {
				st.leftover = bytes.Clone(data)
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s at %d: %w", st.path, st.offset, err)
		}
		if err != nil || n == 0 {
			break
		}
	}
	if st.cut {
		t.log.Debug("still skipping cut line", "path", st.path, "offset", st.offset)
	}
	return lines, nil
}

func toLine(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func missing(err error) Result {
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return Result{FileMissing: true}
	}
	return Result{FileMissing: true, Err: err}
}
