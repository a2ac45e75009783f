// Package locator resolves where debug logs live inside a workspace.
//
// A workspace contains a root marker directory (".wix" by default) which in
// turn contains the flat log directory ("debug-logs"). Each level can be
// absent; Resolve reports the first missing one.
package locator

import (
	"os"
	"path/filepath"

	"github.com/atikulmunna/tailview/internal/model"
)

const (
	DefaultRootMarker = ".wix"
	DefaultLogDir     = "debug-logs"
)

// Status is the outcome of one resolution. RootDir and LogDir hold the
// expected paths whenever the workspace exists, whether or not they are
// present on disk. Empty is set unless the log directory exists.
type Status struct {
	Workspace string
	RootDir   string
	LogDir    string
	Empty     model.EmptyState
}

// Ready reports whether the log directory exists.
func (s Status) Ready() bool {
	return s.Empty == ""
}

// Locator resolves a Status.
type Locator interface {
	Resolve() Status
}

// Dir resolves logs under a fixed workspace path.
type Dir struct {
	Workspace  string
	RootMarker string
	LogDir     string
}

// New returns a Dir locator with default marker and log directory names
// when the given ones are empty.
func New(workspace, rootMarker, logDir string) *Dir {
	if rootMarker == "" {
		rootMarker = DefaultRootMarker
	}
	if logDir == "" {
		logDir = DefaultLogDir
	}
	return &Dir{Workspace: workspace, RootMarker: rootMarker, LogDir: logDir}
}

// Resolve implements Locator.
func (d *Dir) Resolve() Status {
	if d.Workspace == "" || !isDir(d.Workspace) {
		return Status{Empty: model.StateNoWorkspace}
	}
	ws, err := filepath.Abs(d.Workspace)
	if err != nil {
		ws = d.Workspace
	}

	st := Status{
		Workspace: ws,
		RootDir:   filepath.Join(ws, d.RootMarker),
	}
	st.LogDir = filepath.Join(st.RootDir, d.LogDir)

	switch {
	case !isDir(st.RootDir):
		st.Empty = model.StateNoLogRoot
	case !isDir(st.LogDir):
		st.Empty = model.StateWaitingLogsDir
	}
	return st
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
