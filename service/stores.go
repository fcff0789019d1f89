package service

import (
	"context"

	"github.com/JuanCrzp/ClientCare/model"
)

// Store contracts consumed by the engine. dao provides Redis and in-memory
// implementations. Store failures never abort message processing: the
// engine logs and carries on as if the operation were a no-op.

type StateStore interface {
	Get(ctx context.Context, user, chat string) (model.ConversationState, error)
	Set(ctx context.Context, user, chat, name string, data map[string]any) error
	UpdateField(ctx context.Context, user, chat, field string, value any) error
	Clear(ctx context.Context, user, chat string) error
}

type ConversationStore interface {
	AppendEvent(ctx context.Context, user, chat string, ev model.HistoryEvent, maxItems int) error
	History(ctx context.Context, user, chat string, limit int) ([]model.HistoryEvent, error)
	Topic(ctx context.Context, user, chat string) (*model.Topic, error)
	SetTopic(ctx context.Context, user, chat, name string, data map[string]any, ttlDays int) error
	ClearTopic(ctx context.Context, user, chat string) error
}

type TicketStore interface {
	Create(ctx context.Context, user, chat, text string) (model.Ticket, error)
	Get(ctx context.Context, id string) (*model.Ticket, error)
}
