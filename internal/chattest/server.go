// Package chattest runs an in-process chat server speaking the documented
// REST+websocket contract, for integration tests of the sync core.
package chattest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/pkg/token"
	"github.com/s21platform/chat-client/internal/transport"
)

// Envelope selects the history response shape, exercising the client's
// normalization.
type Envelope string

const (
	EnvelopeArray     Envelope = "array"
	EnvelopeData      Envelope = "data"
	EnvelopeItems     Envelope = "items"
	EnvelopeMalformed Envelope = "malformed"
)

type Server struct {
	httpServer *httptest.Server
	generator  *token.Generator
	upgrader   websocket.Upgrader

	// Envelope and RequireAuth may be set before the client under test
	// connects.
	Envelope    Envelope
	RequireAuth bool

	mu       sync.Mutex
	messages map[string][]*model.Message
	conns    map[*conn]struct{}
}

type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	rooms   map[string]struct{}
	userUID string
}

// New starts the stub server. An empty secret disables token validation.
func New(secret string) *Server {
	s := &Server{
		Envelope: EnvelopeArray,
		messages: make(map[string][]*model.Message),
		conns:    make(map[*conn]struct{}),
	}
	if secret != "" {
		s.generator = token.New(secret)
	}

	router := chi.NewRouter()
	router.Get("/rooms", s.handleRooms)
	router.Get("/rooms/{roomID}/messages", s.handleHistory)
	router.Post("/rooms/direct", s.handleDirectRoom)
	router.Put("/messages/{messageID}", s.handleEdit)
	router.Delete("/messages/{messageID}", s.handleDelete)
	router.Post("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/ws", s.handleSocket)

	s.httpServer = httptest.NewServer(router)
	return s
}

func (s *Server) URL() string {
	return s.httpServer.URL
}

func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http") + "/ws"
}

func (s *Server) Close() {
	s.mu.Lock()
	for c := range s.conns {
		_ = c.ws.Close()
	}
	s.conns = make(map[*conn]struct{})
	s.mu.Unlock()

	s.httpServer.Close()
}

// Seed inserts a message directly into server state, bypassing the socket.
func (s *Server) Seed(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := msg
	s.messages[m.RoomID] = append(s.messages[m.RoomID], &m)
}

// Messages returns a copy of a room's server-side state.
func (s *Server) Messages(roomID string) model.MessageList {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(model.MessageList, 0, len(s.messages[roomID]))
	for _, m := range s.messages[roomID] {
		out = append(out, *m)
	}
	return out
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return !s.RequireAuth
	}
	if s.generator == nil {
		return true
	}
	_, err := s.generator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	return err == nil
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	rooms := make(model.RoomList, 0, len(s.messages))
	for roomID, msgs := range s.messages {
		room := model.Room{ID: roomID, Name: roomID}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			room.LastMessagePreview = last.Text
			updatedAt := last.CreatedAt
			room.UpdatedAt = &updatedAt
		}
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	writeJSON(w, rooms)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID := chi.URLParam(r, "roomID")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	s.mu.Lock()
	msgs := s.messages[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	list := make(model.MessageList, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, *m)
	}
	s.mu.Unlock()

	switch s.Envelope {
	case EnvelopeData:
		writeJSON(w, map[string]interface{}{"data": list})
	case EnvelopeItems:
		writeJSON(w, map[string]interface{}{"items": list})
	case EnvelopeMalformed:
		writeJSON(w, map[string]interface{}{"unexpected": list})
	default:
		writeJSON(w, list)
	}
}

func (s *Server) handleDirectRoom(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ParticipantUID string `json:"participantUid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ParticipantUID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, model.Room{ID: "direct-" + req.ParticipantUID, Name: req.ParticipantUID})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if !s.editMessage(messageID, req.Text) {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if !s.deleteMessage(messageID) {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &conn{
		ws:    ws,
		rooms: make(map[string]struct{}),
	}

	if !s.handshake(c) {
		_ = ws.Close()
		return
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.readLoop(c)

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = ws.Close()
}

func (s *Server) handshake(c *conn) bool {
	_ = c.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()

	var frame transport.Frame
	if err := c.ws.ReadJSON(&frame); err != nil || frame.Event != transport.EventAuth {
		return false
	}

	var payload model.AuthPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return false
	}

	if payload.Token == nil {
		c.userUID = "anonymous"
		return !s.RequireAuth
	}
	if s.generator == nil {
		c.userUID = "anonymous"
		return true
	}

	claims, err := s.generator.ValidateToken(*payload.Token)
	if err != nil {
		return false
	}
	c.userUID = claims.UserUID
	return true
}

func (s *Server) readLoop(c *conn) {
	for {
		var frame transport.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Event {
		case model.EventJoin:
			var payload model.JoinRoomPayload
			if err := json.Unmarshal(frame.Data, &payload); err == nil && payload.RoomID != "" {
				c.mu.Lock()
				c.rooms[payload.RoomID] = struct{}{}
				c.mu.Unlock()
			}
		case model.EventLeave:
			var payload model.JoinRoomPayload
			if err := json.Unmarshal(frame.Data, &payload); err == nil {
				c.mu.Lock()
				delete(c.rooms, payload.RoomID)
				c.mu.Unlock()
			}
		case model.EventMessageSend:
			var payload model.SendMessagePayload
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				continue
			}
			for _, roomID := range c.joinedRooms() {
				s.appendAndBroadcast(c, roomID, payload, model.EventMessageNew)
			}
		case model.EventSendMessage:
			var payload model.RoomSendPayload
			if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.RoomID == "" {
				continue
			}
			s.appendAndBroadcast(c, payload.RoomID, model.SendMessagePayload{Text: payload.Text}, model.EventRoomMessage)
		case model.EventMessageEdit:
			var payload model.EditMessagePayload
			if err := json.Unmarshal(frame.Data, &payload); err == nil {
				s.editMessage(payload.MessageID, payload.Text)
			}
		case model.EventMessageDelete:
			var payload model.DeleteMessagePayload
			if err := json.Unmarshal(frame.Data, &payload); err == nil {
				s.deleteMessage(payload.MessageID)
			}
		}
	}
}

func (c *conn) joinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (s *Server) appendAndBroadcast(c *conn, roomID string, payload model.SendMessagePayload, event string) {
	msg := &model.Message{
		ID:            uuid.New().String(),
		RoomID:        roomID,
		SenderUID:     c.userUID,
		Text:          payload.Text,
		Image:         payload.Image,
		ImageFileName: payload.ImageFileName,
		ImageSize:     payload.ImageSize,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages[roomID] = append(s.messages[roomID], msg)
	s.mu.Unlock()

	s.broadcast(roomID, event, msg)
}

func (s *Server) editMessage(messageID, text string) bool {
	s.mu.Lock()
	var target *model.Message
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == messageID && !m.IsDeleted {
				target = m
			}
		}
	}
	if target == nil {
		s.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	target.Text = text
	target.IsEdited = true
	target.UpdatedAt = &now
	roomID := target.RoomID
	event := model.MessageEditedEvent{ID: target.ID, Text: text, IsEdited: true, UpdatedAt: &now}
	s.mu.Unlock()

	s.broadcast(roomID, model.EventMessageEdited, event)
	return true
}

func (s *Server) deleteMessage(messageID string) bool {
	s.mu.Lock()
	var target *model.Message
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == messageID && !m.IsDeleted {
				target = m
			}
		}
	}
	if target == nil {
		s.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	target.Text = ""
	target.Image = ""
	target.IsDeleted = true
	target.DeletedAt = &now
	roomID := target.RoomID
	event := model.MessageDeletedEvent{ID: target.ID, DeletedAt: &now}
	s.mu.Unlock()

	s.broadcast(roomID, model.EventMessageDeleted, event)
	return true
}

func (s *Server) broadcast(roomID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame := transport.Frame{Event: event, Data: data}

	s.mu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		c.mu.Lock()
		_, joined := c.rooms[roomID]
		c.mu.Unlock()
		if joined {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.writeMu.Lock()
		_ = c.ws.WriteJSON(frame)
		c.writeMu.Unlock()
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(data)
}
