package dao

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JuanCrzp/ClientCare/model"
)

// In-memory store implementations with the same contracts as the Redis
// ones. Used by tests and when no REDIS_ADDR is configured.

type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]model.ConversationState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]model.ConversationState)}
}

func (s *MemoryStateStore) Get(ctx context.Context, user, chat string) (model.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[convKey("", user, chat)], nil
}

func (s *MemoryStateStore) Set(ctx context.Context, user, chat, name string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[convKey("", user, chat)] = model.ConversationState{Name: name, Data: data}
	return nil
}

func (s *MemoryStateStore) UpdateField(ctx context.Context, user, chat, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := convKey("", user, chat)
	st := s.states[k]
	if st.Data == nil {
		st.Data = map[string]any{}
	}
	st.Data[field] = value
	s.states[k] = st
	return nil
}

func (s *MemoryStateStore) Clear(ctx context.Context, user, chat string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, convKey("", user, chat))
	return nil
}

type MemoryConversationStore struct {
	mu   sync.RWMutex
	recs map[string]*conversationRecord
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{recs: make(map[string]*conversationRecord)}
}

func (s *MemoryConversationStore) rec(user, chat string) *conversationRecord {
	k := convKey("", user, chat)
	r, ok := s.recs[k]
	if !ok {
		r = &conversationRecord{}
		s.recs[k] = r
	}
	return r
}

func (s *MemoryConversationStore) AppendEvent(ctx context.Context, user, chat string, ev model.HistoryEvent, maxItems int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rec(user, chat)
	r.History = append(r.History, ev)
	if maxItems > 0 && len(r.History) > maxItems {
		r.History = r.History[len(r.History)-maxItems:]
	}
	r.LastActive = ev.Ts
	return nil
}

func (s *MemoryConversationStore) History(ctx context.Context, user, chat string, limit int) ([]model.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[convKey("", user, chat)]
	if !ok {
		return nil, nil
	}
	h := r.History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]model.HistoryEvent, len(h))
	copy(out, h)
	return out, nil
}

func (s *MemoryConversationStore) Topic(ctx context.Context, user, chat string) (*model.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[convKey("", user, chat)]
	if !ok || r.Topic == nil {
		return nil, nil
	}
	if r.Topic.ExpiresAt > 0 && time.Now().Unix() > r.Topic.ExpiresAt {
		r.Topic = nil
		return nil, nil
	}
	t := *r.Topic
	return &t, nil
}

func (s *MemoryConversationStore) SetTopic(ctx context.Context, user, chat, name string, data map[string]any, ttlDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	var expires int64
	if ttlDays > 0 {
		expires = now + int64(ttlDays)*86400
	}
	r := s.rec(user, chat)
	r.Topic = &model.Topic{Name: name, Data: data, Ts: now, ExpiresAt: expires}
	r.LastActive = now
	return nil
}

func (s *MemoryConversationStore) ClearTopic(ctx context.Context, user, chat string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recs[convKey("", user, chat)]; ok {
		r.Topic = nil
	}
	return nil
}

type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]model.Ticket
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]model.Ticket)}
}

func (s *MemoryTicketStore) Create(ctx context.Context, user, chat, text string) (model.Ticket, error) {
	now := time.Now().Format(time.RFC3339)
	t := model.Ticket{
		ID:        uuid.New().String(),
		UserID:    user,
		ChatID:    chat,
		Text:      text,
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.tickets[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

func (s *MemoryTicketStore) Get(ctx context.Context, id string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}
