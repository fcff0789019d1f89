package dao

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanCrzp/ClientCare/model"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestConvKey(t *testing.T) {
	assert.Equal(t, "p:c1|u1", convKey("p:", "u1", "c1"))
	assert.Equal(t, "p:-|u1", convKey("p:", "u1", ""))
	assert.Equal(t, "p:c1|-", convKey("p:", "", "c1"))
}

func TestRedisStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStateStore(testClient(t), time.Hour)

	// Unknown keys read as the zero state, not an error.
	st, err := s.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Empty(t, st.Name)

	require.NoError(t, s.Set(ctx, "u1", "c1", model.StateMenuDynamic, map[string]any{"current": "main"}))
	st, err = s.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMenuDynamic, st.Name)
	assert.Equal(t, "main", st.Data["current"])

	// UpdateField keeps the other entries intact.
	require.NoError(t, s.UpdateField(ctx, "u1", "c1", "inactivity_reminder_sent", true))
	st, err = s.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "main", st.Data["current"])
	assert.Equal(t, true, st.Data["inactivity_reminder_sent"])

	require.NoError(t, s.Clear(ctx, "u1", "c1"))
	st, err = s.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Empty(t, st.Name)
}

func TestRedisStateStoreUpdateFieldOnEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStateStore(testClient(t), time.Hour)

	require.NoError(t, s.UpdateField(ctx, "u1", "c1", "flag", "on"))
	st, err := s.Get(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "on", st.Data["flag"])
}

func TestRedisConversationHistory(t *testing.T) {
	ctx := context.Background()
	s := NewRedisConversationStore(testClient(t), time.Hour)

	for i := 0; i < 5; i++ {
		ev := model.HistoryEvent{Ts: int64(100 + i), Role: model.RoleUser, Text: "msg"}
		require.NoError(t, s.AppendEvent(ctx, "u1", "c1", ev, 3))
	}

	h, err := s.History(ctx, "u1", "c1", 0)
	require.NoError(t, err)
	require.Len(t, h, 3)
	// Oldest events were trimmed from the front.
	assert.Equal(t, int64(102), h[0].Ts)
	assert.Equal(t, int64(104), h[2].Ts)

	h, err = s.History(ctx, "u1", "c1", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, int64(103), h[0].Ts)
}

func TestRedisConversationTopic(t *testing.T) {
	ctx := context.Background()
	s := NewRedisConversationStore(testClient(t), time.Hour)

	topic, err := s.Topic(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Nil(t, topic)

	require.NoError(t, s.SetTopic(ctx, "u1", "c1", "ticket_pendiente", map[string]any{"detalle": "x"}, 14))
	topic, err = s.Topic(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Equal(t, "ticket_pendiente", topic.Name)
	assert.Greater(t, topic.ExpiresAt, time.Now().Unix())

	require.NoError(t, s.ClearTopic(ctx, "u1", "c1"))
	topic, err = s.Topic(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Nil(t, topic)
}

func TestRedisConversationTopicNoTTL(t *testing.T) {
	ctx := context.Background()
	s := NewRedisConversationStore(testClient(t), time.Hour)

	require.NoError(t, s.SetTopic(ctx, "u1", "c1", "tema", nil, 0))
	topic, err := s.Topic(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Zero(t, topic.ExpiresAt)
}

func TestRedisTicketStore(t *testing.T) {
	ctx := context.Background()
	s := NewRedisTicketStore(testClient(t))

	created, err := s.Create(ctx, "u1", "c1", "la app no abre")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.TicketOpen, created.Status)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "la app no abre", got.Text)

	_, err = s.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidParam)
}
