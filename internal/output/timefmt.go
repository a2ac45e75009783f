package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/tailview/internal/model"
	"github.com/atikulmunna/tailview/internal/parser"
)

// TimeMode selects how timestamps are displayed.
type TimeMode string

const (
	// TimeISO shows the timestamp text as written.
	TimeISO TimeMode = "iso"
	// TimeShort shows local HH:MM:SS.mmm.
	TimeShort TimeMode = "short"
)

// ParseTimeMode maps a flag value to a TimeMode, defaulting to TimeShort.
func ParseTimeMode(s string) TimeMode {
	if strings.EqualFold(strings.TrimSpace(s), string(TimeISO)) {
		return TimeISO
	}
	return TimeShort
}

// FormatTimestamp renders the entry's time for display; "-" when it has none.
func FormatTimestamp(entry model.LogEntry, mode TimeMode) string {
	if mode == TimeISO {
		if entry.TSRaw != "" {
			return entry.TSRaw
		}
		if t, ok := entry.Time(); ok {
			return t.UTC().Format("2006-01-02T15:04:05.000Z")
		}
		return "-"
	}

	t, ok := entry.Time()
	if !ok && entry.TSRaw != "" {
		t, ok = parser.ParseTimestamp(entry.TSRaw)
	}
	if !ok {
		if entry.TSRaw != "" {
			return entry.TSRaw
		}
		return "-"
	}
	return formatShort(t.Local())
}

func formatShort(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond))
}
