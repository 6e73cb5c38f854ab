package ha

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"halights/internal/clock"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds the whole dial + auth handshake
const DefaultConnectTimeout = 5000 * time.Millisecond

// Status is the connection state of a session
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

// MessageHandler is called for every inbound frame, in arrival order
type MessageHandler func(msg *Message)

// StatusHandler is called on status transitions
type StatusHandler func(status Status)

// Channel is the send/observe surface the view controllers depend on
type Channel interface {
	Send(cmd Command) (int, error)
	OnMessage(handler MessageHandler) (unsubscribe func())
	OnStatusChange(handler StatusHandler) (unsubscribe func())
	Status() Status
}

// Connector performs the connect + auth handshake
type Connector struct {
	Dialer  *websocket.Dialer
	Clock   clock.Clock
	Timeout time.Duration
	logger  *zap.Logger
}

// NewConnector creates a connector with the default 5s handshake timeout
func NewConnector(logger *zap.Logger) *Connector {
	return &Connector{
		Dialer:  websocket.DefaultDialer,
		Clock:   clock.NewRealClock(),
		Timeout: DefaultConnectTimeout,
		logger:  logger,
	}
}

type connectOutcome struct {
	conn *websocket.Conn
	err  error
}

// Connect opens the socket, authenticates with token and returns an open
// session. Exactly one attempt is made. The handshake races a timer started
// when Connect is called; whichever resolves first wins and the other side is
// suppressed.
func (c *Connector) Connect(ctx context.Context, url, token string) (*Session, error) {
	start := c.Clock.Now()
	c.logger.Info("Connecting to Home Assistant", zap.String("url", url))

	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()

	done := make(chan connectOutcome, 1)
	resolve := func(out connectOutcome) bool {
		select {
		case done <- out:
			return true
		default:
			return false
		}
	}

	var (
		mu       sync.Mutex
		pending  *websocket.Conn
		timedOut bool
	)

	timer := c.Clock.AfterFunc(c.Timeout, func() {
		mu.Lock()
		timedOut = true
		conn := pending
		mu.Unlock()

		cancelDial()
		if conn != nil {
			conn.Close()
		}
		resolve(connectOutcome{err: ErrTimeout})
	})

	go func() {
		conn, _, err := c.Dialer.DialContext(dialCtx, url, nil)
		if err != nil {
			resolve(connectOutcome{err: fmt.Errorf("%w: %v", ErrTransport, err)})
			return
		}

		mu.Lock()
		if timedOut {
			mu.Unlock()
			conn.Close()
			return
		}
		pending = conn
		mu.Unlock()

		if err := authenticate(conn, token); err != nil {
			conn.Close()
			resolve(connectOutcome{err: err})
			return
		}
		if !resolve(connectOutcome{conn: conn}) {
			conn.Close()
		}
	}()

	var out connectOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		timer.Stop()
		mu.Lock()
		timedOut = true
		if pending != nil {
			pending.Close()
		}
		mu.Unlock()
		return nil, ctx.Err()
	}

	stopped := timer.Stop()

	mu.Lock()
	expired := timedOut
	mu.Unlock()

	if out.err != nil {
		if expired {
			out.err = ErrTimeout
		}
		c.logger.Warn("Connection to Home Assistant failed",
			zap.String("url", url),
			zap.Error(out.err))
		return nil, out.err
	}

	// The timer fired after auth_ok was read but before we got here
	if !stopped || expired {
		out.conn.Close()
		c.logger.Warn("Connection to Home Assistant failed",
			zap.String("url", url),
			zap.Error(ErrTimeout))
		return nil, ErrTimeout
	}

	s := newSession(out.conn, url, c.logger)
	c.logger.Info("Connected to Home Assistant",
		zap.String("url", url),
		zap.Duration("handshake", c.Clock.Now().Sub(start)))
	go s.receiveMessages()
	return s, nil
}

// authenticate sends the token as soon as the socket is open and waits for
// auth_ok or auth_invalid. auth_required and anything else is skipped.
func authenticate(conn *websocket.Conn, token string) error {
	if err := conn.WriteJSON(AuthMessage{Type: TypeAuth, AccessToken: token}); err != nil {
		return fmt.Errorf("%w: failed to send auth: %v", ErrTransport, err)
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: failed to read auth response: %v", ErrTransport, err)
		}

		switch msg.Type {
		case TypeAuthOK:
			return nil
		case TypeAuthInvalid:
			return ErrAuthInvalid
		}
	}
}

type messageEntry struct {
	subID   int
	handler MessageHandler
}

type statusEntry struct {
	subID   int
	handler StatusHandler
}

// Session is one authenticated connection. It is owned by whoever called
// Connect and must be closed by them.
type Session struct {
	url     string
	conn    *websocket.Conn
	logger  *zap.Logger
	writeMu sync.Mutex

	mu        sync.RWMutex
	status    Status
	msgSubs   []messageEntry
	statSubs  []statusEntry
	nextSubID int

	msgIDMu sync.Mutex
	msgID   int
}

func newSession(conn *websocket.Conn, url string, logger *zap.Logger) *Session {
	return &Session{
		url:    url,
		conn:   conn,
		logger: logger,
		status: StatusOpen,
	}
}

// URL returns the endpoint this session is connected to
func (s *Session) URL() string {
	return s.url
}

// Status returns the current connection status
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// nextMsgID returns the next correlation id. Ids increase monotonically so
// two commands issued back to back never collide.
func (s *Session) nextMsgID() int {
	s.msgIDMu.Lock()
	defer s.msgIDMu.Unlock()
	s.msgID++
	return s.msgID
}

// Send stamps cmd with a fresh id and writes it. It returns the id used.
func (s *Session) Send(cmd Command) (int, error) {
	if s.Status() != StatusOpen {
		return 0, ErrNotOpen
	}

	id := s.nextMsgID()
	cmd.setID(id)

	s.writeMu.Lock()
	err := s.conn.WriteJSON(cmd)
	s.writeMu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return id, nil
}

// OnMessage registers a handler for every inbound frame
func (s *Session) OnMessage(handler MessageHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID := s.nextSubID
	s.nextSubID++
	s.msgSubs = append(s.msgSubs, messageEntry{subID: subID, handler: handler})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.msgSubs {
			if entry.subID == subID {
				s.msgSubs = append(s.msgSubs[:i:i], s.msgSubs[i+1:]...)
				return
			}
		}
	}
}

// OnStatusChange registers a handler for status transitions
func (s *Session) OnStatusChange(handler StatusHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID := s.nextSubID
	s.nextSubID++
	s.statSubs = append(s.statSubs, statusEntry{subID: subID, handler: handler})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.statSubs {
			if entry.subID == subID {
				s.statSubs = append(s.statSubs[:i:i], s.statSubs[i+1:]...)
				return
			}
		}
	}
}

// Close closes the socket if open. Safe to call more than once.
func (s *Session) Close() error {
	if !s.markClosed() {
		return nil
	}

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	err := s.conn.Close()
	s.logger.Info("Disconnected from Home Assistant", zap.String("url", s.url))
	s.notifyStatus(StatusClosed)
	return err
}

// markClosed performs the open -> closed transition once
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusClosed {
		return false
	}
	s.status = StatusClosed
	return true
}

func (s *Session) notifyStatus(status Status) {
	s.mu.RLock()
	entries := append([]statusEntry(nil), s.statSubs...)
	s.mu.RUnlock()

	for _, entry := range entries {
		entry.handler(status)
	}
}

// receiveMessages delivers inbound frames to observers until the socket dies
func (s *Session) receiveMessages() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.markClosed() {
				s.logger.Warn("Connection lost", zap.Error(err))
				s.conn.Close()
				s.notifyStatus(StatusClosed)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("Failed to decode message", zap.Error(err))
			continue
		}

		s.mu.RLock()
		entries := append([]messageEntry(nil), s.msgSubs...)
		s.mu.RUnlock()

		for _, entry := range entries {
			entry.handler(&msg)
		}
	}
}
