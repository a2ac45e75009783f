package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/atikulmunna/tailview/internal/model"
)

// Parser converts a raw log line into a structured LogEntry.
type Parser interface {
	Parse(raw string, source string) model.LogEntry
}

// Format selects which bracketed line grammar is accepted.
type Format string

const (
	// FormatStandard accepts "[ts] [level] message".
	FormatStandard Format = "standard"
	// FormatLegacy accepts "[ts] [producer] [level] message".
	FormatLegacy Format = "legacy"
	// FormatEither accepts both shapes, the producer bracket being optional.
	FormatEither Format = "either"
)

var formatPatterns = map[Format]string{
	FormatStandard: `^\[(?P<ts>[^\]]+)\]\s+\[(?P<level>[^\]]+)\]\s*(?P<message>.*)$`,
	FormatLegacy:   `^\[(?P<ts>[^\]]+)\]\s+\[(?P<producer>[^\]]+)\]\s+\[(?P<level>[^\]]+)\]\s*(?P<message>.*)$`,
	FormatEither:   `^\[(?P<ts>[^\]]+)\]\s+(?:\[(?P<producer>[^\]]+)\]\s+)?\[(?P<level>[^\]]+)\]\s*(?P<message>.*)$`,
}

var producerFileRe = regexp.MustCompile(`^(?P<producer>[a-z0-9_-]+)-debug\.log$`)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formatPatterns[f]; !ok {
		return "", fmt.Errorf("unknown line format %q (want standard, legacy or either)", s)
	}
	return f, nil
}

// LineParser parses bracketed debug log lines. It never fails: lines that do
// not match the configured grammar become unknown-level entries carrying the
// whole trimmed line as their message.
//
// The only state is the ingestion sequence, which is shared by every line
// the parser sees and is safe for concurrent use.
type LineParser struct {
	re       *regexp.Regexp
	tsIdx    int
	levelIdx int
	msgIdx   int
	seq      atomic.Uint64
}

// New returns a LineParser for the given format. Unknown formats fall back to FormatEither.
func New(format Format) *LineParser {
	pattern, ok := formatPatterns[format]
	if !ok {
		pattern = formatPatterns[FormatEither]
	}
	re := regexp.MustCompile(pattern)
	return &LineParser{
		re:       re,
		tsIdx:    re.SubexpIndex("ts"),
		levelIdx: re.SubexpIndex("level"),
		msgIdx:   re.SubexpIndex("message"),
	}
}

// Parse implements Parser. source may be a full path; only its base name is kept.
func (p *LineParser) Parse(raw string, source string) model.LogEntry {
	raw = strings.TrimSuffix(raw, "\r")
	trimmed := strings.TrimSpace(raw)

	seq := p.seq.Add(1)
	entry := model.LogEntry{
		ID:         fmt.Sprintf("log-%d", seq),
		Producer:   ProducerFromFile(source),
		Level:      model.LevelUnknown,
		Message:    trimmed,
		Raw:        raw,
		RawLower:   strings.ToLower(raw),
		SourceFile: filepath.Base(source),
		IngestSeq:  seq,
	}

	m := p.re.FindStringSubmatch(trimmed)
	if m == nil {
		return entry
	}

	entry.TSRaw = m[p.tsIdx]
	entry.Level = NormalizeLevel(m[p.levelIdx])
	entry.Message = m[p.msgIdx]
	if t, ok := ParseTimestamp(entry.TSRaw); ok {
		ms := t.UnixMilli()
		entry.Timestamp = &ms
	}
	return entry
}

// Seq returns the last assigned ingestion sequence number.
func (p *LineParser) Seq() uint64 {
	return p.seq.Load()
}

// NormalizeLevel maps a level token to one of the known levels, case-insensitively.
func NormalizeLevel(s string) model.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return model.LevelError
	case "warn":
		return model.LevelWarn
	case "info":
		return model.LevelInfo
	case "debug":
		return model.LevelDebug
	default:
		return model.LevelUnknown
	}
}

// ProducerFromFile infers the producer from a "<producer>-debug.log" file name.
func ProducerFromFile(source string) string {
	name := strings.ToLower(filepath.Base(source))
	m := producerFileRe.FindStringSubmatch(name)
	if m == nil {
		return model.UnknownProducer
	}
	if p := strings.TrimSpace(m[1]); p != "" {
		return p
	}
	return model.UnknownProducer
}

// Layouts tried in order. Layouts without a zone are interpreted in local
// time, except a bare date which is UTC.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC1123Z,
	time.RFC1123,
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
}

// ParseTimestamp parses the ISO-8601-ish timestamps written by debug loggers.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
