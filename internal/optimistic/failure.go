package optimistic

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnknownFailure - Retry/Dismiss вызваны с неизвестным id.
var ErrUnknownFailure = errors.New("unknown failure")

// ErrNotRetryable - операция не поддерживает повтор.
var ErrNotRetryable = errors.New("operation is not retryable")

// Failure - видимая пользователю запись о неудачной операции.
type Failure struct {
	ID        string
	Op        string
	Message   string
	Retryable bool
	At        time.Time

	retry func(context.Context) *Handle
}

// Notification - сигнал для пользователя (inline-сообщение, тост и т.п.).
type Notification struct {
	FailureID string
	Op        string
	Message   string
	Retryable bool
	At        time.Time
}

// Notifier доставляет уведомления об ошибках до пользователя.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc позволяет использовать функцию как Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(n Notification) {
	l.Logger.Warn("operation failed",
		zap.String("op", n.Op),
		zap.String("message", n.Message),
		zap.Bool("retryable", n.Retryable),
		zap.String("failure_id", n.FailureID))
}

// Inbox накапливает уведомления; используется экранами и тестами.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
}

// Notifications возвращает копию накопленных уведомлений.
func (i *Inbox) Notifications() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Notification, len(i.items))
	copy(out, i.items)
	return out
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// Failures возвращает список неудачных операций, ещё не скрытых пользователем.
func (c *Controller[T]) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	for i, f := range c.failures {
		out[i] = *f
	}
	return out
}

// Dismiss скрывает запись об ошибке.
func (c *Controller[T]) Dismiss(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.takeFailureLocked(id) == nil {
		return errors.Wrap(ErrUnknownFailure, id)
	}
	return nil
}

// Retry повторяет неудачную операцию с тем же payload'ом.
func (c *Controller[T]) Retry(ctx context.Context, id string) (*Handle, error) {
	c.mu.Lock()
	f := c.findFailureLocked(id)
	if f == nil {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrUnknownFailure, id)
	}
	if f.retry == nil {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrNotRetryable, f.Op)
	}
	c.takeFailureLocked(id)
	c.mu.Unlock()
	return f.retry(ctx), nil
}

// fail регистрирует ошибку и ровно один раз уведомляет пользователя.
func (c *Controller[T]) fail(err *domain.OperationFailed, retry func(context.Context) *Handle) {
	c.mu.Lock()
	c.failSeq++
	f := &Failure{
		ID:        "failure-" + strconv.Itoa(c.failSeq),
		Op:        err.Op,
		Message:   err.Message,
		Retryable: retry != nil,
		At:        time.Now(),
		retry:     retry,
	}
	c.failures = append(c.failures, f)
	c.mu.Unlock()

	c.notifier.Notify(Notification{
		FailureID: f.ID,
		Op:        f.Op,
		Message:   f.Message,
		Retryable: f.Retryable,
		At:        f.At,
	})
}

func (c *Controller[T]) findFailureLocked(id string) *Failure {
	for _, f := range c.failures {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (c *Controller[T]) takeFailureLocked(id string) *Failure {
	for i, f := range c.failures {
		if f.ID == id {
			c.failures = append(c.failures[:i:i], c.failures[i+1:]...)
			return f
		}
	}
	return nil
}
