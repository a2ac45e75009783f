package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/tailview/internal/model"
)

// Renderer writes LogEntry values to an output stream.
type Renderer interface {
	Render(entry model.LogEntry) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleUnknown = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	styleTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// TextRenderer prints logs to the terminal with severity and producer colors.
type TextRenderer struct {
	w    io.Writer
	mode TimeMode
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer(mode TimeMode) *TextRenderer {
	return &TextRenderer{w: os.Stdout, mode: mode}
}

func (r *TextRenderer) Render(entry model.LogEntry) error {
	ts := styleTime.Render(FormatTimestamp(entry, r.mode))
	tag := styleLevelTag(entry.Level)
	producer := lipgloss.NewStyle().Foreground(ProducerColor(entry.Producer)).Render(entry.Producer)

	_, err := fmt.Fprintf(r.w, "%s %s %s %s\n", ts, tag, producer, entry.Message)
	return err
}

func styleLevelTag(level model.Level) string {
	padded := fmt.Sprintf("%-7s", level)
	switch level {
	case model.LevelDebug:
		return styleDebug.Render(padded)
	case model.LevelWarn:
		return styleWarn.Render(padded)
	case model.LevelError:
		return styleError.Render(padded)
	case model.LevelInfo:
		return styleInfo.Render(padded)
	default:
		return styleUnknown.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each log entry as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(entry model.LogEntry) error {
	return r.enc.Encode(entry)
}

// ---------------------------------------------------------------------------
// Raw Renderer (export format)
// ---------------------------------------------------------------------------

// RawRenderer writes each entry's raw line, as used for copy and export.
type RawRenderer struct {
	w io.Writer
}

// NewRawRenderer returns a Renderer writing raw lines to w.
func NewRawRenderer(w io.Writer) *RawRenderer {
	return &RawRenderer{w: w}
}

func (r *RawRenderer) Render(entry model.LogEntry) error {
	_, err := fmt.Fprintln(r.w, entry.Raw)
	return err
}
