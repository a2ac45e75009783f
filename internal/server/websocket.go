package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/atikulmunna/tailview/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlMessage is an inbound command from the display layer.
type controlMessage struct {
	Type    string         `json:"type"`
	Payload controlPayload `json:"payload"`
}

type controlPayload struct {
	FollowTail bool `json:"followTail"`
}

// handleWebSocket upgrades the connection, sends an init snapshot, then
// streams hub messages. Inbound reload/clearView/togglePause/setFollowTail
// commands are forwarded to the controller.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Subscribe before taking the snapshot so nothing published in between is
	// lost; entries already in the snapshot are skipped below.
	messages := s.hub.Subscribe()
	defer s.hub.Unsubscribe(messages)

	snap := s.ctrl.Snapshot()
	seen := maxSeq(snap.Entries)
	if err := conn.WriteJSON(model.InitMessage(snap)); err != nil {
		s.log.Debug("websocket write failed", "error", err)
		return
	}

	// Read pump: control commands, and disconnect detection.
	go func() {
		defer s.hub.Unsubscribe(messages)
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.handleControl(msg)
		}
	}()

	// Write pump.
	for msg := range messages {
		switch msg.Type {
		case model.MessageInit:
			if msg.Init != nil {
				seen = maxSeq(msg.Init.Entries)
			}
		case model.MessageAppend:
			msg = skipSeen(msg, seen)
			if msg.Delta == nil || len(msg.Delta.Entries) == 0 {
				continue
			}
		}
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleControl(msg controlMessage) {
	switch msg.Type {
	case "reload":
		s.ctrl.Reload()
	case "clearView":
		s.ctrl.Clear()
	case "togglePause":
		s.ctrl.TogglePause()
	case "setFollowTail":
		s.ctrl.SetFollowTail(msg.Payload.FollowTail)
	default:
		s.log.Debug("ignoring unknown control message", "type", msg.Type)
	}
}

func maxSeq(entries []model.LogEntry) uint64 {
	var m uint64
	for _, e := range entries {
		m = max(m, e.IngestSeq)
	}
	return m
}

// skipSeen drops delta entries the client already received in its snapshot.
func skipSeen(msg model.Message, seen uint64) model.Message {
	if msg.Delta == nil || seen == 0 {
		return msg
	}
	fresh := make([]model.LogEntry, 0, len(msg.Delta.Entries))
	for _, e := range msg.Delta.Entries {
		if e.IngestSeq > seen {
			fresh = append(fresh, e)
		}
	}
	d := *msg.Delta
	d.Entries = fresh
	return model.AppendMessage(d)
}
