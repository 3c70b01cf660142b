package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/artranslate/relay/internal/metrics"
	"github.com/artranslate/relay/internal/protocol"
	"github.com/artranslate/relay/internal/upstream"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound frame buffer per connection. The protocol is strictly
	// request/response so this never holds more than a response and a few
	// control frames.
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HubConfig holds the connection liveness tunables.
type HubConfig struct {
	// HeartbeatInterval is the ping period.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is how long a missing pong is tolerated before the
	// connection is considered dead.
	HeartbeatTimeout time.Duration
}

// DefaultHubConfig returns the protocol defaults: 15s pings, 15s timeout.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
	}
}

// Hub maintains the set of active relay sessions and forwards their
// translation requests to the upstream translator.
type Hub struct {
	// Registered sessions keyed by session ID.
	sessions map[string]*Session

	// Register requests from new sessions.
	register chan *Session

	// Unregister requests from closing sessions.
	unregister chan *Session

	// Mutex for thread-safe access to the sessions map.
	mu sync.RWMutex

	translator upstream.Translator
	metrics    *metrics.Metrics
	config     HubConfig

	logger *zap.Logger
}

// NewHub creates a relay hub. The translator is shared read-only across all
// connections.
func NewHub(config HubConfig, translator upstream.Translator, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHubConfig().HeartbeatInterval
	}
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = DefaultHubConfig().HeartbeatTimeout
	}
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		translator: translator,
		metrics:    m,
		config:     config,
		logger:     logger,
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.register:
			h.mu.Lock()
			h.sessions[session.id] = session
			h.mu.Unlock()
			h.metrics.RecordSessionOpened()
			h.logger.Info("Session registered", zap.String("sessionID", session.id))

		case session := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[session.id]; ok {
				delete(h.sessions, session.id)
				close(session.send)
			}
			h.mu.Unlock()
			h.metrics.RecordSessionClosed()
			h.logger.Info("Session unregistered", zap.String("sessionID", session.id))
		}
	}
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every open connection. Each session's pumps observe the
// closed socket and unregister themselves.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, session := range h.sessions {
		session.conn.Close()
	}
}

// Session is one open relay connection. Requests on it are handled strictly
// one at a time: the read loop does not pick up frame N+1 until the response
// for frame N has been handed to the write pump.
type Session struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound text frames.
	send chan []byte

	// Session ID, generated at upgrade time.
	id string

	// ctx is cancelled when the connection goes away; it cancels any
	// in-flight upstream call for this connection.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and starts the session pumps.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	session.hub.register <- session

	go session.writePump()
	go session.readPump()

	return nil
}

// readPump pumps request frames off the connection. Each frame is handled
// synchronously before the next read, which enforces the one-outstanding-
// request alternation: a pipelined second request is simply queued in the
// socket until the first response has been written.
func (s *Session) readPump() {
	defer func() {
		s.cancel()
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.hub.config.HeartbeatTimeout + s.hub.config.HeartbeatInterval))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.hub.config.HeartbeatTimeout + s.hub.config.HeartbeatInterval))
		return nil
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", zap.String("sessionID", s.id), zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			s.logger.Warn("Ignoring non-text frame",
				zap.String("sessionID", s.id),
				zap.Int("type", messageType))
			continue
		}

		s.handleRequest(message)
	}
}

// writePump pumps response frames to the connection and keeps it alive with
// periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker((s.hub.config.HeartbeatInterval * 9) / 10)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Error("Failed to write message",
					zap.String("sessionID", s.id),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleRequest decodes one request frame, invokes the upstream translator,
// and enqueues exactly one response frame. Failures become structured error
// frames; they never close the connection.
func (s *Session) handleRequest(message []byte) {
	s.hub.metrics.RecordRequest()
	start := time.Now()

	req, err := protocol.DecodeRequest(message)
	if err != nil {
		s.hub.metrics.RecordDecodeError()
		s.logger.Warn("Rejected malformed request frame",
			zap.String("sessionID", s.id),
			zap.Error(err))
		s.enqueue(protocol.EncodeError(protocol.ErrorInvalidRequest))
		return
	}

	resp, err := s.hub.translator.Translate(s.ctx, req)
	if err != nil {
		s.hub.metrics.RecordTranslationFailure(time.Since(start).Seconds())
		s.logger.Error("Translation failed",
			zap.String("sessionID", s.id),
			zap.Strings("q", req.Q),
			zap.String("target", req.Target),
			zap.Error(err))
		s.enqueue(protocol.EncodeError(protocol.ErrorTranslationFailed))
		return
	}

	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		s.hub.metrics.RecordTranslationFailure(time.Since(start).Seconds())
		s.logger.Error("Failed to encode response",
			zap.String("sessionID", s.id),
			zap.Error(err))
		s.enqueue(protocol.EncodeError(protocol.ErrorTranslationFailed))
		return
	}

	s.hub.metrics.RecordTranslationSuccess(time.Since(start).Seconds())
	s.logger.Info("Translated utterance",
		zap.String("sessionID", s.id),
		zap.Int("count", len(req.Q)),
		zap.String("target", req.Target),
		zap.ByteString("response", payload))
	s.enqueue(payload)
}

// enqueue hands a frame to the write pump, giving up if the connection is
// torn down first.
func (s *Session) enqueue(payload []byte) {
	select {
	case s.send <- payload:
	case <-s.ctx.Done():
	}
}
