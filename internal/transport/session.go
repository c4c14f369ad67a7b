// Package transport owns the single live streaming connection to the chat
// server. Frames are JSON objects carrying an event name and a payload;
// the first client frame authenticates the connection with the bearer
// token (or null for anonymous sockets).
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/s21platform/chat-client/internal/creds"
	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/pkg/apperr"
)

const EventAuth = "auth"

// Frame is the wire unit of the streaming contract.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw payload of a subscribed event. Handlers run on
// the session's read goroutine and must not block.
type Handler func(data json.RawMessage)

type Session struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	listeners map[string]map[int]Handler
	nextID    int
	closed    bool
}

type Subscription struct {
	session *Session
	event   string
	id      int
}

// Unsubscribe removes the handler. Safe on a nil or already-closed
// subscription.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.session == nil {
		return
	}
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	if handlers, ok := s.session.listeners[s.event]; ok {
		delete(handlers, s.id)
		if len(handlers) == 0 {
			delete(s.session.listeners, s.event)
		}
	}
}

func newSession(conn *websocket.Conn) *Session {
	s := &Session{
		conn:      conn,
		listeners: make(map[string]map[int]Handler),
	}
	go s.readLoop()
	return s
}

func (s *Session) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.Close()
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		s.mu.Lock()
		handlers := make([]Handler, 0, len(s.listeners[frame.Event]))
		for _, h := range s.listeners[frame.Event] {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()

		for _, h := range handlers {
			h(frame.Data)
		}
	}
}

// Subscribe registers a handler for a server-pushed event and returns a
// handle the owner must dispose of on teardown.
func (s *Session) Subscribe(event string, h Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners[event] == nil {
		s.listeners[event] = make(map[int]Handler)
	}
	s.nextID++
	s.listeners[event][s.nextID] = h

	return &Subscription{session: s, event: event, id: s.nextID}
}

// Emit sends an event frame to the server. Fire-and-forget: confirmation
// arrives later as a pushed event.
func (s *Session) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("failed to emit %s: session is closed", event)
	}
	if err := s.conn.WriteJSON(Frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}
	return nil
}

// Alive reports whether the session can still emit.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close clears every registered listener before closing the underlying
// connection, so no handler fires on previously-queued frames after
// logical teardown. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = make(map[string]map[int]Handler)
	s.mu.Unlock()

	_ = s.conn.Close()
}

// Dialer establishes authenticated sessions. At most one session is
// current; re-entrant Connect calls while that session is alive return it
// instead of opening a second connection.
type Dialer struct {
	mu      sync.Mutex
	addr    string
	creds   creds.Provider
	current *Session
}

func NewDialer(addr string, provider creds.Provider) *Dialer {
	return &Dialer{
		addr:  addr,
		creds: provider,
	}
}

func (d *Dialer) Connect(ctx context.Context) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && d.current.Alive() {
		return d.current, nil
	}

	// A failed or absent credential still attempts connection; whether
	// anonymous sockets are accepted is the server's call.
	var tokenPtr *string
	if d.creds != nil {
		if tok, err := d.creds.Token(ctx); err == nil && tok != "" {
			tokenPtr = &tok
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.addr, nil)
	if err != nil {
		return nil, &apperr.ConnectionError{Addr: d.addr, Err: err}
	}

	authData, err := json.Marshal(model.AuthPayload{Token: tokenPtr})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to marshal auth payload: %w", err)
	}
	if err := conn.WriteJSON(Frame{Event: EventAuth, Data: authData}); err != nil {
		_ = conn.Close()
		return nil, &apperr.ConnectionError{Addr: d.addr, Err: err}
	}

	d.current = newSession(conn)
	return d.current, nil
}

// Disconnect tears down the current session. Idempotent and safe when no
// session was ever opened.
func (d *Dialer) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
}
