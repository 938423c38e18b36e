package screen

import (
	"context"
	"testing"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_SendAppendsExchange(t *testing.T) {
	e := newEnv(t, 0, nil)
	ctx := context.Background()
	svc := &flakyChat{ChatService: e.backend, gate: make(chan struct{})}
	c := NewChat(svc, e.opts()...)
	require.NoError(t, c.Load(ctx))
	require.Len(t, c.Messages(), 1)

	h, err := c.Send(ctx, "Привет")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.StatusSending, msgs[1].Status)
	assert.True(t, msgs[1].Tentative())

	close(svc.gate)
	require.NoError(t, h.Wait(ctx))

	msgs = c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Привет", msgs[1].Text)
	assert.Equal(t, domain.StatusSent, msgs[1].Status)
	assert.False(t, msgs[1].Tentative())
	assert.Equal(t, domain.SenderBot, msgs[2].Sender)
}

func TestChat_FailedMessageStaysAndResends(t *testing.T) {
	e := newEnv(t, 0, nil)
	ctx := context.Background()
	svc := &flakyChat{ChatService: e.backend}
	svc.fails.Store(1)
	c := NewChat(svc, e.opts()...)
	require.NoError(t, c.Load(ctx))

	h, err := c.Send(ctx, "Ты тут?")
	require.NoError(t, err)
	require.Error(t, h.Wait(ctx))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	failed := msgs[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, "Ты тут?", failed.Text)
	require.Equal(t, 1, e.inbox.Len())
	assert.False(t, e.inbox.Notifications()[0].Retryable)

	_, err = c.Resend(ctx, msgs[0].ID)
	assert.ErrorIs(t, err, ErrNotFailed)

	h, err = c.Resend(ctx, failed.ID)
	require.NoError(t, err)
	require.NoError(t, h.Wait(ctx))

	msgs = c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Ты тут?", msgs[1].Text)
	assert.Equal(t, domain.StatusSent, msgs[1].Status)
	assert.False(t, msgs[1].Tentative())
	assert.Equal(t, domain.SenderBot, msgs[2].Sender)
	assert.Equal(t, 1, e.inbox.Len())
}

func TestChat_ResendFailsAgain(t *testing.T) {
	e := newEnv(t, 0, nil)
	ctx := context.Background()
	svc := &flakyChat{ChatService: e.backend}
	svc.fails.Store(2)
	c := NewChat(svc, e.opts()...)
	require.NoError(t, c.Load(ctx))

	h, err := c.Send(ctx, "Алло")
	require.NoError(t, err)
	require.Error(t, h.Wait(ctx))
	failed := c.Messages()[1]

	h, err = c.Resend(ctx, failed.ID)
	require.NoError(t, err)
	require.Error(t, h.Wait(ctx))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, failed.ID, msgs[1].ID)
	assert.Equal(t, domain.StatusFailed, msgs[1].Status)
	assert.Equal(t, 2, e.inbox.Len())
}
