package model

// EmptyState describes why there is nothing to ingest yet.
type EmptyState string

const (
	StateNoWorkspace    EmptyState = "noWorkspace"
	StateNoLogRoot      EmptyState = "noLogRoot"
	StateWaitingLogsDir EmptyState = "waitingLogsDir"
	StateNoFiles        EmptyState = "noFiles"
)

// View is the display state shared by every client of one pipeline.
type View struct {
	Paused     bool `json:"paused"`
	FollowTail bool `json:"followTail"`
}

// Snapshot is the full view sent to a display layer on (re)initialization.
type Snapshot struct {
	Session        string     `json:"session"`
	Entries        []LogEntry `json:"entries"`
	DroppedCount   int        `json:"droppedCount"`
	KnownProducers []string   `json:"knownProducers"`
	View           View       `json:"view"`
}

// Delta carries the entries offered to the store by one ingestion batch.
type Delta struct {
	Entries        []LogEntry `json:"entries"`
	DroppedCount   int        `json:"droppedCount"`
	KnownProducers []string   `json:"knownProducers"`
}

// MessageType identifies an outbound message.
type MessageType string

const (
	MessageInit       MessageType = "init"
	MessageAppend     MessageType = "append"
	MessageEmptyState MessageType = "emptyState"
	MessageError      MessageType = "error"
	MessageState      MessageType = "state"
)

// Message is the envelope pushed to display subscribers.
// Exactly one of the payload fields is set, matching Type.
type Message struct {
	Type  MessageType `json:"type"`
	Init  *Snapshot   `json:"init,omitempty"`
	Delta *Delta      `json:"append,omitempty"`
	Empty EmptyState  `json:"emptyState,omitempty"`
	Error string      `json:"error,omitempty"`
	State *View       `json:"state,omitempty"`
}

// InitMessage wraps a snapshot.
func InitMessage(s Snapshot) Message { return Message{Type: MessageInit, Init: &s} }

// AppendMessage wraps a delta.
func AppendMessage(d Delta) Message { return Message{Type: MessageAppend, Delta: &d} }

// EmptyStateMessage reports a directory status that has nothing to show.
func EmptyStateMessage(kind EmptyState) Message {
	return Message{Type: MessageEmptyState, Empty: kind}
}

// StateMessage announces a change of the shared view state.
func StateMessage(v View) Message { return Message{Type: MessageState, State: &v} }

// ErrorMessage reports a non-fatal failure to the display layer.
func ErrorMessage(msg string) Message { return Message{Type: MessageError, Error: msg} }
