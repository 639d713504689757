package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeHello       = "hello"
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels broadcast by the engine.
const (
	ChannelRunProgress  = "run.progress"
	ChannelRunCompleted = "run.completed"
)

// runTopicPrefix scopes a subscription to the events of one run,
// e.g. "run:6f1c...".
const runTopicPrefix = "run:"

// outboxSize is the per-client queue of encoded messages.
const outboxSize = 256

// WSMessage is a message sent to or from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
// Topics are event channels or run:<id>.
type WSSubscribePayload struct {
	Topics []string `json:"topics"`
}

// helloPayload tells a new client what the line is doing.
type helloPayload struct {
	Version   string           `json:"version"`
	Backends  []engine.Backend `json:"backends"`
	ActiveRun string           `json:"active_run,omitempty"`
	Topics    []string         `json:"topics"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// Hub fans run events out to WebSocket subscribers. It implements
// engine.WSHub.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

// subscriber is one connected client and its topic set.
type subscriber struct {
	conn    *websocket.Conn
	subject string

	mu     sync.Mutex
	topics map[string]struct{}
	outbox chan []byte
	closed bool
}

// NewHub creates a hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast delivers an engine event to the clients subscribed to its
// channel or to its run.
func (h *Hub) Broadcast(channel string, payload any) {
	runID := runIDOf(payload)
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		RunID:     runID,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		if sub.wants(channel, runID) {
			sub.enqueue(data)
		}
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", sub.subject, "clients", n)
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	n := len(h.subscribers)
	h.mu.Unlock()
	sub.shutdown()
	h.logger.Debug("websocket client disconnected", "subject", sub.subject, "clients", n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for sub := range subs {
		sub.shutdown()
		if sub.conn != nil {
			sub.conn.Close()
		}
	}
}

// runIDOf extracts the run id carried by an engine event payload.
func runIDOf(payload any) string {
	switch p := payload.(type) {
	case engine.Progress:
		return p.RunID
	case *engine.Progress:
		return p.RunID
	case map[string]any:
		id, _ := p["run_id"].(string)
		return id
	}
	return ""
}

func (s *subscriber) wants(channel, runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[channel]; ok {
		return true
	}
	if runID == "" {
		return false
	}
	_, ok := s.topics[runTopicPrefix+runID]
	return ok
}

func (s *subscriber) setTopics(topics []string, subscribe bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		if subscribe {
			s.topics[t] = struct{}{}
		} else {
			delete(s.topics, t)
		}
	}
}

func (s *subscriber) topicList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// enqueue drops the message when the client is gone or too slow.
func (s *subscriber) enqueue(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.outbox <- data:
	default:
	}
}

// shutdown closes the outbox once; the write loop then sends a close frame.
func (s *subscriber) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.outbox)
	}
}

func (s *subscriber) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	s.enqueue(data)
}

func (s *subscriber) replyError(id, message string) {
	s.reply(id, WSTypeError, map[string]string{"message": message})
}

// handleWebSocket upgrades the connection and greets the client. The
// optional topics query parameter subscribes it up front.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn:   conn,
		topics: make(map[string]struct{}),
		outbox: make(chan []byte, outboxSize),
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		sub.subject = claims.Subject
	}
	sub.setTopics(splitTopics(r.URL.Query().Get("topics")), true)

	s.runMu.Lock()
	active := s.activeRun
	s.runMu.Unlock()
	sub.reply("", WSTypeHello, helloPayload{
		Version:   s.version,
		Backends:  s.engine.Backends(),
		ActiveRun: active,
		Topics:    sub.topicList(),
	})

	s.hub.add(sub)
	go s.hub.writeLoop(sub)
	go s.hub.readLoop(sub)
}

func splitTopics(raw string) []string {
	var topics []string
	for t := range strings.SplitSeq(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.remove(sub)
		sub.conn.Close()
	}()

	keepalive := time.Duration(h.cfg.PingInterval+h.cfg.PongTimeout) * time.Second
	sub.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	sub.conn.SetReadDeadline(time.Now().Add(keepalive))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(keepalive))
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "subject", sub.subject, "error", err)
			}
			return
		}
		// Any client message keeps the connection alive.
		//nolint:errcheck // Best-effort deadline reset
		sub.conn.SetReadDeadline(time.Now().Add(keepalive))
		h.dispatch(sub, data)
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(time.Duration(h.cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()
	writeWait := time.Duration(h.cfg.PongTimeout) * time.Second

	for {
		select {
		case data, ok := <-sub.outbox:
			//nolint:errcheck // Best-effort deadline; write error caught below
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck // Best-effort close message
				sub.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client message.
func (h *Hub) dispatch(sub *subscriber, data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		sub.replyError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var p WSSubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || len(p.Topics) == 0 {
			sub.replyError(msg.ID, msg.Type+" needs a topics list")
			return
		}
		sub.setTopics(p.Topics, msg.Type == WSTypeSubscribe)
		sub.reply(msg.ID, WSTypeResponse, map[string]any{"topics": sub.topicList()})
	case WSTypePing:
		sub.reply(msg.ID, WSTypePong, nil)
	default:
		sub.replyError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
