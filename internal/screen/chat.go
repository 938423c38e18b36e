package screen

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/pkg/errors"
)

// ErrNotFailed - повторная отправка сообщения, которое не помечено как failed.
var ErrNotFailed = errors.New("message has not failed")

// Chat - чат с ботом. Неотправленные сообщения не исчезают, а остаются
// в ленте со статусом failed, пока их не отправят заново.
type Chat struct {
	view[domain.Message]
	svc ChatService
}

func NewChat(svc ChatService, opts ...optimistic.Option) *Chat {
	return &Chat{view: newView[domain.Message](opts), svc: svc}
}

func (c *Chat) Load(ctx context.Context) error {
	msgs, err := c.svc.ListMessages(ctx)
	if err != nil {
		return domain.AsOperationFailed("listMessages", err)
	}
	c.replaceAll(msgs)
	return nil
}

func (c *Chat) Messages() []domain.Message { return c.Snapshot() }

// Send сразу показывает сообщение со статусом sending. После ответа сервера
// в ленту попадают подтверждённое сообщение и ответ бота.
func (c *Chat) Send(ctx context.Context, text string) (*optimistic.Handle, error) {
	in := domain.NewMessage{Text: text}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	temp := domain.Message{
		ID:        domain.NewTempID(),
		Text:      text,
		Sender:    domain.SenderUser,
		Status:    domain.StatusSending,
		CreatedAt: time.Now().UTC(),
	}
	return optimistic.Run(ctx, c.ctrl, optimistic.Mutation[domain.Message, domain.Exchange]{
		Name:   remote.OpSendMessage,
		Intent: optimistic.Add(temp, optimistic.Append),
		Do: func(ctx context.Context) (domain.Exchange, error) {
			return c.svc.SendMessage(ctx, in)
		},
		Commit: appendExchange,
		Fallback: func(base []domain.Message, _ *domain.OperationFailed) []domain.Message {
			failed := temp
			failed.Status = domain.StatusFailed
			return optimistic.Reduce(base, optimistic.Add(failed, optimistic.Append))
		},
	}), nil
}

// Resend повторяет отправку сообщения со статусом failed. Сообщение остаётся
// на своём месте; при новой ошибке оно снова становится failed.
func (c *Chat) Resend(ctx context.Context, msgID string) (*optimistic.Handle, error) {
	msg, ok := c.ctrl.Find(msgID)
	if !ok {
		return nil, errors.Wrap(ErrUnknownRecord, msgID)
	}
	if msg.Status != domain.StatusFailed {
		return nil, errors.Wrap(ErrNotFailed, msgID)
	}
	in := domain.NewMessage{Text: msg.Text}
	return optimistic.Run(ctx, c.ctrl, optimistic.Mutation[domain.Message, domain.Exchange]{
		Name:   remote.OpSendMessage,
		Intent: optimistic.Update[domain.Message](msgID, map[string]any{"status": string(domain.StatusSending)}),
		Do: func(ctx context.Context) (domain.Exchange, error) {
			return c.svc.SendMessage(ctx, in)
		},
		Commit: func(base []domain.Message, ex domain.Exchange) []domain.Message {
			base = replaceRecord(base, msgID, ex.Message)
			return optimistic.Reduce(base, optimistic.Add(ex.Reply, optimistic.Append))
		},
	}), nil
}

func appendExchange(base []domain.Message, ex domain.Exchange) []domain.Message {
	base = optimistic.Reduce(base, optimistic.Add(ex.Message, optimistic.Append))
	return optimistic.Reduce(base, optimistic.Add(ex.Reply, optimistic.Append))
}
