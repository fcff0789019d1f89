package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/JuanCrzp/ClientCare/model"
)

var (
	ErrInvalidParam = errors.New("invalid parameter")
	ErrMaxRetries   = errors.New("max retries exceeded")
	ErrNotFound     = errors.New("not found")
)

const writeRetries = 3

func convKey(prefix, user, chat string) string {
	if user == "" {
		user = "-"
	}
	if chat == "" {
		chat = "-"
	}
	return fmt.Sprintf("%s%s|%s", prefix, chat, user)
}

// RedisStateStore persists the conversation state per (user, chat) key.
type RedisStateStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{
		client:    client,
		keyPrefix: "clientcare:state:",
		ttl:       ttl,
	}
}

func (s *RedisStateStore) Get(ctx context.Context, user, chat string) (model.ConversationState, error) {
	data, err := s.client.Get(ctx, convKey(s.keyPrefix, user, chat)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ConversationState{}, nil
	}
	if err != nil {
		return model.ConversationState{}, err
	}
	var st model.ConversationState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.ConversationState{}, err
	}
	return st, nil
}

func (s *RedisStateStore) Set(ctx context.Context, user, chat, name string, data map[string]any) error {
	st := model.ConversationState{Name: name, Data: data}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, convKey(s.keyPrefix, user, chat), raw, s.ttl).Err()
}

// UpdateField changes a single entry of the state's data payload, keeping
// the rest intact. Uses WATCH so concurrent writers don't lose updates.
func (s *RedisStateStore) UpdateField(ctx context.Context, user, chat, field string, value any) error {
	key := convKey(s.keyPrefix, user, chat)
	for i := 0; i < writeRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var st model.ConversationState
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				if err := json.Unmarshal(data, &st); err != nil {
					return err
				}
			}
			if st.Data == nil {
				st.Data = map[string]any{}
			}
			st.Data[field] = value
			raw, err := json.Marshal(st)
			if err != nil {
				return err
			}
			return tx.Set(ctx, key, raw, s.ttl).Err()
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w updating state field %s", ErrMaxRetries, field)
}

func (s *RedisStateStore) Clear(ctx context.Context, user, chat string) error {
	return s.client.Del(ctx, convKey(s.keyPrefix, user, chat)).Err()
}

// conversationRecord is the stored value of RedisConversationStore: the
// bounded history plus the optional open topic.
type conversationRecord struct {
	History    []model.HistoryEvent `json:"history"`
	Topic      *model.Topic         `json:"topic,omitempty"`
	LastActive int64                `json:"last_active"`
}

// RedisConversationStore keeps the per-(user, chat) history and open topic.
type RedisConversationStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisConversationStore(client *redis.Client, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{
		client:    client,
		keyPrefix: "clientcare:conv:",
		ttl:       ttl,
	}
}

func (s *RedisConversationStore) update(ctx context.Context, user, chat string, mutate func(*conversationRecord)) error {
	key := convKey(s.keyPrefix, user, chat)
	for i := 0; i < writeRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var rec conversationRecord
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				if err := json.Unmarshal(data, &rec); err != nil {
					rec = conversationRecord{}
				}
			}
			mutate(&rec)
			raw, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			return tx.Set(ctx, key, raw, s.ttl).Err()
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrMaxRetries
}

func (s *RedisConversationStore) read(ctx context.Context, user, chat string) (conversationRecord, error) {
	var rec conversationRecord
	data, err := s.client.Get(ctx, convKey(s.keyPrefix, user, chat)).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return conversationRecord{}, err
	}
	return rec, nil
}

func (s *RedisConversationStore) AppendEvent(ctx context.Context, user, chat string, ev model.HistoryEvent, maxItems int) error {
	return s.update(ctx, user, chat, func(rec *conversationRecord) {
		rec.History = append(rec.History, ev)
		if maxItems > 0 && len(rec.History) > maxItems {
			rec.History = rec.History[len(rec.History)-maxItems:]
		}
		rec.LastActive = ev.Ts
	})
}

func (s *RedisConversationStore) History(ctx context.Context, user, chat string, limit int) ([]model.HistoryEvent, error) {
	rec, err := s.read(ctx, user, chat)
	if err != nil {
		return nil, err
	}
	h := rec.History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

// Topic returns the open topic, deleting it on read when expired.
func (s *RedisConversationStore) Topic(ctx context.Context, user, chat string) (*model.Topic, error) {
	rec, err := s.read(ctx, user, chat)
	if err != nil {
		return nil, err
	}
	t := rec.Topic
	if t == nil {
		return nil, nil
	}
	if t.ExpiresAt > 0 && time.Now().Unix() > t.ExpiresAt {
		_ = s.ClearTopic(ctx, user, chat)
		return nil, nil
	}
	return t, nil
}

func (s *RedisConversationStore) SetTopic(ctx context.Context, user, chat, name string, data map[string]any, ttlDays int) error {
	now := time.Now().Unix()
	var expires int64
	if ttlDays > 0 {
		expires = now + int64(ttlDays)*86400
	}
	return s.update(ctx, user, chat, func(rec *conversationRecord) {
		rec.Topic = &model.Topic{Name: name, Data: data, Ts: now, ExpiresAt: expires}
		rec.LastActive = now
	})
}

func (s *RedisConversationStore) ClearTopic(ctx context.Context, user, chat string) error {
	return s.update(ctx, user, chat, func(rec *conversationRecord) {
		rec.Topic = nil
	})
}

// RedisTicketStore persists tickets keyed by id.
type RedisTicketStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisTicketStore(client *redis.Client) *RedisTicketStore {
	return &RedisTicketStore{client: client, keyPrefix: "clientcare:ticket:"}
}

func (s *RedisTicketStore) Create(ctx context.Context, user, chat, text string) (model.Ticket, error) {
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
	raw, err := json.Marshal(t)
	if err != nil {
		return model.Ticket{}, err
	}
	if err := s.client.Set(ctx, s.keyPrefix+t.ID, raw, 0).Err(); err != nil {
		return model.Ticket{}, err
	}
	return t, nil
}

func (s *RedisTicketStore) Get(ctx context.Context, id string) (*model.Ticket, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: ticket id is empty", ErrInvalidParam)
	}
	data, err := s.client.Get(ctx, s.keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t model.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
