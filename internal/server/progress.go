package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/echoverse/echoverse/internal/narrate"
)

// writeTimeout bounds a single event write to one subscriber. A slow or
// stuck client must not stall narration runs.
const writeTimeout = 2 * time.Second

// ProgressEvent is one pipeline state transition, as sent to WebSocket
// subscribers.
type ProgressEvent struct {
	SessionID string        `json:"session_id"`
	State     narrate.State `json:"state"`
	At        time.Time     `json:"at"`
}

// progressHub fans pipeline state transitions out to WebSocket subscribers,
// keyed by session ID. It is safe for concurrent use.
type progressHub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

// subscribe registers conn for events of the given session.
func (h *progressHub) subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[sessionID][conn] = struct{}{}
}

// unsubscribe removes conn from the session's subscriber set.
func (h *progressHub) unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sessionID], conn)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

// publish sends a state transition to every subscriber of the session.
// Failed writes drop the subscriber; the client observes the close.
func (h *progressHub) publish(sessionID string, state narrate.State) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.subs[sessionID]))
	for conn := range h.subs[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	if len(conns) == 0 {
		return
	}
	event := ProgressEvent{SessionID: sessionID, State: state, At: time.Now().UTC()}
	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, conn, event)
		cancel()
		if err != nil {
			h.unsubscribe(sessionID, conn)
			conn.Close(websocket.StatusPolicyViolation, "write failed")
		}
	}
}

// Observer adapts the hub into a pipeline observer.
func (h *progressHub) Observer() narrate.Observer {
	return func(sessionID string, state narrate.State) {
		h.publish(sessionID, state)
	}
}
