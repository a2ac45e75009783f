package model

import "time"

// Level is the normalized severity of a log line.
type Level string

const (
	LevelError   Level = "error"
	LevelWarn    Level = "warn"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
	LevelUnknown Level = "unknown"
)

// AllLevels lists every level in display order.
var AllLevels = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelUnknown}

// UnknownProducer is used when the source file name does not follow <producer>-debug.log.
const UnknownProducer = "unknown"

// LogEntry represents a single parsed log line. Entries are never mutated after creation.
type LogEntry struct {
	ID         string `json:"id"`
	TSRaw      string `json:"tsRaw,omitempty"`     // timestamp text as written
	Timestamp  *int64 `json:"timestamp,omitempty"` // epoch milliseconds, nil when absent or unparseable
	Producer   string `json:"producer"`
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	Raw        string `json:"raw"`
	RawLower   string `json:"rawLower"`
	SourceFile string `json:"sourceFile"` // base name of the originating file
	IngestSeq  uint64 `json:"ingestSeq"`
}

// Time returns the parsed timestamp, if any.
func (e LogEntry) Time() (time.Time, bool) {
	if e.Timestamp == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*e.Timestamp), true
}
