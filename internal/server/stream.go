package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// streamBuffer is the per-subscriber event backlog. A subscriber that
// falls this far behind is dropped rather than stalling the turn
// pipeline, which never blocks on sinks.
const streamBuffer = 64

// StreamEvent is one frame on /api/stream: the fire-and-forget map
// sink and the session state machine made observable.
type StreamEvent struct {
	Type    string          `json:"type"`
	Command *mapcmd.Command `json:"command,omitempty"`
	State   session.State   `json:"state,omitempty"`
}

// Event types carried on the stream.
const (
	StreamConnected  = "connected"
	StreamMapCommand = "map_command"
	StreamState      = "session_state"
)

// Hub fans stream events out to websocket subscribers. Each subscriber
// gets its own buffered channel drained by its own writer, so events
// arrive at every subscriber in broadcast order.
type Hub struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[int]chan StreamEvent
	next int
}

// NewHub returns an empty hub. A nil logger is replaced with a no-op.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, subs: make(map[int]chan StreamEvent)}
}

// BroadcastCommand publishes a map command. The signature matches
// mapcmd.Sink so the hub wires directly into the orchestrator.
func (h *Hub) BroadcastCommand(cmd mapcmd.Command) {
	c := cmd
	h.broadcast(StreamEvent{Type: StreamMapCommand, Command: &c})
}

// BroadcastState publishes a session state transition.
func (h *Hub) BroadcastState(s session.State) {
	h.broadcast(StreamEvent{Type: StreamState, State: s})
}

// broadcast delivers the event to every subscriber without blocking.
// A subscriber whose buffer is full is closed and removed; the turn
// pipeline calls this inline and must not wait on a stuck socket.
func (h *Hub) broadcast(ev StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, id)
			close(ch)
			h.log.Warn("dropping slow stream subscriber", zap.Int("id", id))
		}
	}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel plus an idempotent unsubscribe. The hub closes
// the channel on unsubscribe or when the subscriber is dropped.
func (h *Hub) Subscribe(buffer int) (<-chan StreamEvent, func()) {
	if buffer <= 0 {
		buffer = streamBuffer
	}
	ch := make(chan StreamEvent, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleStream upgrades the connection and pumps hub events at it
// until either side goes away. The stream is one-way; inbound frames
// are read only to notice the close.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before the hello frame: a client that has read it is
	// guaranteed to see every event broadcast afterwards.
	events, unsubscribe := s.hub.Subscribe(streamBuffer)
	defer unsubscribe()

	if err := conn.WriteJSON(StreamEvent{Type: StreamConnected}); err != nil {
		return
	}
	s.log.Info("stream subscriber connected", zap.String("remote", r.RemoteAddr))

	// Unsubscribing closes the event channel, which ends the write
	// loop below when the peer hangs up first.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			break
		}
	}
	s.log.Info("stream subscriber disconnected", zap.String("remote", r.RemoteAddr))
}

// checkOrigin enforces the configured allowed origin. Requests without
// an Origin header (non-browser clients) always pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Server.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == allowed
}
