// Package store keeps one room's messages: ordered by creation time,
// deduplicated by id, mutated in place by insert/edit/delete events.
// Records are never removed once inserted, which keeps list positions
// stable; a delete only suppresses content.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/s21platform/chat-client/internal/model"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]*model.Message
	order []*model.Message
}

func New() *Store {
	return &Store{
		byID: make(map[string]*model.Message),
	}
}

// Insert adds a message at its timestamp-ordered position. Idempotent on
// id: duplicate delivery from overlapping history loads and live events is
// a no-op. Reports whether the message was actually added.
func (s *Store) Insert(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[msg.ID]; exists {
		return false
	}

	m := msg
	s.byID[m.ID] = &m

	idx := sort.Search(len(s.order), func(i int) bool {
		if s.order[i].CreatedAt.Equal(m.CreatedAt) {
			return s.order[i].ID > m.ID
		}
		return s.order[i].CreatedAt.After(m.CreatedAt)
	})
	s.order = append(s.order, nil)
	copy(s.order[idx+1:], s.order[idx:])
	s.order[idx] = &m

	return true
}

// ApplyEdit updates the text of a known, non-deleted message. An unknown
// id is a no-op: the target may simply not have arrived yet.
func (s *Store) ApplyEdit(id, newText string, editedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok || msg.IsDeleted {
		return false
	}

	msg.Text = newText
	msg.IsEdited = true
	msg.UpdatedAt = &editedAt

	return true
}

// ApplyDelete soft-deletes a known message: content is dropped, the
// record keeps its id and ordering position. Unknown id is a no-op.
func (s *Store) ApplyDelete(id string, deletedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok || msg.IsDeleted {
		return false
	}

	msg.Text = ""
	msg.Image = ""
	msg.ImageFileName = ""
	msg.ImageSize = 0
	msg.IsDeleted = true
	msg.DeletedAt = &deletedAt

	return true
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byID[id]
	if !ok {
		return model.Message{}, false
	}
	return *msg, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns the messages ordered by creation timestamp ascending,
// ties broken by id. The result is a copy, safe to render directly.
func (s *Store) Snapshot() model.MessageList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(model.MessageList, len(s.order))
	for i, msg := range s.order {
		out[i] = *msg
	}
	return out
}
