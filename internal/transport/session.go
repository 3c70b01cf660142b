package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/artranslate/relay/domain/entities"
	"github.com/artranslate/relay/internal/protocol"
)

// Typed failures surfaced by Send. All are recovered at this boundary; the
// capture loop treats them as a failed utterance, not a crash.
var (
	// ErrConnectionClosed means the socket is not open.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrDecode means the inbound payload did not parse as a response.
	ErrDecode = errors.New("failed to decode response")
	// ErrTimeout means no response arrived within the configured deadline.
	ErrTimeout = errors.New("timed out waiting for response")
	// ErrTranslationFailed means the server answered with an error frame.
	ErrTranslationFailed = errors.New("server reported translation failure")
)

const (
	defaultResponseTimeout  = 30 * time.Second
	defaultHeartbeatTimeout = 15 * time.Second
	writeWait               = 10 * time.Second
)

// Config holds the client session configuration.
// Required fields:
// - URL: the ws:// or wss:// endpoint, e.g. "ws://localhost:8080/translate"
// Optional fields with defaults:
// - Token: session token appended as a query parameter when non-empty
// - ResponseTimeout: deadline for each request's response (default 30s)
// - HeartbeatTimeout: how long to tolerate a silent server (default 15s)
type Config struct {
	URL              string
	Token            string
	ResponseTimeout  time.Duration
	HeartbeatTimeout time.Duration
}

// Session owns one persistent connection to the relay server. It enforces
// strict request/response pairing: Send writes one frame and waits for the
// first inbound text frame before returning, and concurrent callers are
// serialized by an internal mutex so overlapping sends are impossible.
type Session struct {
	conn   *websocket.Conn
	logger *zap.Logger

	responseTimeout time.Duration

	// sendMu serializes Send callers, preserving the single-outstanding-
	// request invariant of the wire protocol.
	sendMu sync.Mutex

	// frames carries inbound text frames from the read loop to Send.
	frames chan []byte

	// done is closed when the read loop exits, marking the session dead.
	done chan struct{}

	// closed is closed by Close; it unblocks a read loop parked on a full
	// frames buffer, which cannot watch done because it owns done itself.
	closed chan struct{}

	closeOnce sync.Once
}

// Dial opens a session to the relay server and starts its read loop.
func Dial(ctx context.Context, config Config, logger *zap.Logger) (*Session, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("relay URL is required")
	}

	url := config.URL
	if config.Token != "" {
		url = url + "?token=" + config.Token
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	responseTimeout := config.ResponseTimeout
	if responseTimeout == 0 {
		responseTimeout = defaultResponseTimeout
	}
	heartbeatTimeout := config.HeartbeatTimeout
	if heartbeatTimeout == 0 {
		heartbeatTimeout = defaultHeartbeatTimeout
	}

	session := &Session{
		conn:            conn,
		logger:          logger,
		responseTimeout: responseTimeout,
		frames:          make(chan []byte, 1),
		done:            make(chan struct{}),
		closed:          make(chan struct{}),
	}

	// The server pings on its heartbeat interval; every arriving ping
	// refreshes the read deadline and is answered with a pong. A server
	// that goes silent past twice the timeout kills the read loop.
	deadline := 2 * heartbeatTimeout
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(deadline))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	go session.readLoop(deadline)

	return session, nil
}

// readLoop pumps inbound frames into the frames channel. It exits on any
// read error, which marks the whole session as closed.
func (s *Session) readLoop(deadline time.Duration) {
	defer close(s.done)
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Relay connection lost", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(deadline))
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case s.frames <- data:
		case <-s.closed:
			return
		}
	}
}

// Send ships one utterance and blocks until its response arrives, the
// response deadline passes, or the connection dies. The first inbound text
// frame after the write is the answer; the strict alternation of the wire
// protocol guarantees the pairing.
func (s *Session) Send(utterance *entities.Utterance) (*protocol.TranslationResponse, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	select {
	case <-s.done:
		return nil, ErrConnectionClosed
	default:
	}

	payload, err := protocol.EncodeRequest(utterance.Request())
	if err != nil {
		return nil, err
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	timer := time.NewTimer(s.responseTimeout)
	defer timer.Stop()

	select {
	case data := <-s.frames:
		resp, errFrame, err := protocol.DecodeServerFrame(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if errFrame != nil {
			return nil, fmt.Errorf("%w: %s", ErrTranslationFailed, errFrame.Error)
		}
		if got, want := len(resp.Data.Translations), len(utterance.Text); got != want {
			return nil, fmt.Errorf("%w: %d translations for %d inputs", ErrDecode, got, want)
		}
		return resp, nil
	case <-timer.C:
		// A late response would mispair with the next request, so a missed
		// deadline is fatal for the whole session.
		s.Close()
		return nil, ErrTimeout
	case <-s.done:
		return nil, ErrConnectionClosed
	}
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}
