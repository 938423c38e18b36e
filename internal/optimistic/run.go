package optimistic

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"go.uber.org/zap"
)

// Mutation описывает одно оптимистичное действие пользователя.
type Mutation[T Record, R any] struct {
	// Name - имя операции для уведомлений, логов и метрик.
	Name string
	// Intent показывается в overlay, пока Do не завершится. Нулевой Intent не применяется.
	Intent Intent[T]
	// Do - "настоящая" операция (вызов сервера).
	Do func(ctx context.Context) (R, error)
	// Commit переносит подтверждённый результат в базу.
	Commit func(base []T, result R) []T
	// Fallback, если задан, применяется к базе при ошибке. Нужен там, где
	// неудачная запись должна остаться видимой (сообщения чата).
	Fallback func(base []T, err *domain.OperationFailed) []T
	OnCommit func(result R)
	OnRevert func(err *domain.OperationFailed)
	// Retryable разрешает повтор через Controller.Retry.
	Retryable bool
}

// Handle - результат запуска операции.
type Handle struct {
	done chan struct{}
	err  *domain.OperationFailed
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) finish(err *domain.OperationFailed) {
	h.err = err
	close(h.done)
}

// Done закрывается, когда операция применена к базе или откатана.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err возвращает ошибку операции; имеет смысл только после Done.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		if h.err == nil {
			return nil
		}
		return h.err
	default:
		return nil
	}
}

// Wait ждёт завершения операции или отмены ctx.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run применяет intent мутации, запускает Do в фоне и по завершении
// либо фиксирует результат в базе, либо снимает intent и сообщает об ошибке.
// Отмена не моделируется: Do всегда доигрывает до конца.
func Run[T Record, R any](ctx context.Context, c *Controller[T], m Mutation[T, R]) *Handle {
	var ticket Ticket
	if m.Intent.Kind != 0 {
		ticket = c.Apply(m.Intent)
	}
	c.begin(m.Name)
	h := newHandle()
	started := time.Now()

	go func() {
		res, err := call(ctx, m.Do)
		if err == nil {
			c.Settle(ticket, func(base []T) []T {
				if m.Commit == nil {
					return base
				}
				return m.Commit(base, res)
			})
			c.logger.Debug("operation committed", zap.String("op", m.Name), zap.Duration("elapsed", time.Since(started)))
			if m.OnCommit != nil {
				m.OnCommit(res)
			}
			c.end(m.Name, OutcomeCommitted, started)
			h.finish(nil)
			return
		}

		failed := domain.AsOperationFailed(m.Name, err)
		var fallback func([]T) []T
		if m.Fallback != nil {
			fallback = func(base []T) []T { return m.Fallback(base, failed) }
		}
		c.Settle(ticket, fallback)

		var retry func(context.Context) *Handle
		if m.Retryable && failed.Retryable {
			retry = func(ctx context.Context) *Handle { return Run(ctx, c, m) }
		}
		c.fail(failed, retry)
		if m.OnRevert != nil {
			m.OnRevert(failed)
		}
		c.end(m.Name, OutcomeReverted, started)
		h.finish(failed)
	}()
	return h
}

func call[R any](ctx context.Context, do func(context.Context) (R, error)) (res R, err error) {
	if do == nil {
		return res, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return do(ctx)
}
