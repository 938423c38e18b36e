package screen

import (
	"context"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownRecord - действие над записью, которой нет на экране.
	ErrUnknownRecord = errors.New("record is not on screen")
	// ErrTentative - действие над записью, которую сервер ещё не подтвердил.
	ErrTentative = errors.New("record is not confirmed yet")
)

// likeable - записи, которые умеет лайкать общий обработчик.
type likeable[T any] interface {
	optimistic.Record
	optimistic.Likeable[T]
}

// view - общая часть всех экранов поверх одного контроллера.
type view[T optimistic.Record] struct {
	ctrl *optimistic.Controller[T]
}

func newView[T optimistic.Record](opts []optimistic.Option) view[T] {
	return view[T]{ctrl: optimistic.New[T](nil, opts...)}
}

// Controller отдаёт контроллер экрана.
func (v view[T]) Controller() *optimistic.Controller[T] { return v.ctrl }

// Snapshot - то, что сейчас видит пользователь.
func (v view[T]) Snapshot() []T { return v.ctrl.Snapshot() }

// Pending сообщает, что есть операции в полёте (кнопки можно блокировать).
func (v view[T]) Pending() bool { return v.ctrl.Pending() }

func (v view[T]) Failures() []optimistic.Failure { return v.ctrl.Failures() }

func (v view[T]) Retry(ctx context.Context, failureID string) (*optimistic.Handle, error) {
	return v.ctrl.Retry(ctx, failureID)
}

func (v view[T]) Dismiss(failureID string) error { return v.ctrl.Dismiss(failureID) }

// Wait ждёт завершения всех операций экрана.
func (v view[T]) Wait() { v.ctrl.Wait() }

// replaceAll подменяет базу целиком (первичная загрузка).
func (v view[T]) replaceAll(records []T) {
	v.ctrl.Commit(func([]T) []T { return records })
}

// confirmed ищет запись в overlay; временные записи для действий недоступны.
func (v view[T]) confirmed(id string) (T, error) {
	rec, ok := v.ctrl.Find(id)
	if !ok {
		return rec, errors.Wrap(ErrUnknownRecord, id)
	}
	if domain.IsTentative(id) {
		return rec, errors.Wrap(ErrTentative, id)
	}
	return rec, nil
}

// toggleLike ставит или снимает лайк в зависимости от того, что видит пользователь.
func toggleLike[T likeable[T]](ctx context.Context, v view[T], op, id string, call func(ctx context.Context, id string, liked bool) error) (*optimistic.Handle, error) {
	rec, err := v.confirmed(id)
	if err != nil {
		return nil, err
	}
	liked, _ := rec.LikeState()
	intent := optimistic.Like[T](id)
	if liked {
		intent = optimistic.Unlike[T](id)
	}
	return optimistic.Run(ctx, v.ctrl, optimistic.Mutation[T, struct{}]{
		Name:   op,
		Intent: intent,
		Do: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx, id, !liked)
		},
		Commit: func(base []T, _ struct{}) []T {
			return optimistic.Reduce(base, intent)
		},
		Retryable: true,
	}), nil
}

// remove удаляет запись: сразу из overlay, из базы - после подтверждения.
func remove[T optimistic.Record](ctx context.Context, v view[T], op, id string, call func(ctx context.Context, id string) error) (*optimistic.Handle, error) {
	if _, err := v.confirmed(id); err != nil {
		return nil, err
	}
	intent := optimistic.Delete[T](id)
	return optimistic.Run(ctx, v.ctrl, optimistic.Mutation[T, struct{}]{
		Name:   op,
		Intent: intent,
		Do: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx, id)
		},
		Commit: func(base []T, _ struct{}) []T {
			return optimistic.Reduce(base, intent)
		},
		Retryable: true,
	}), nil
}

// create показывает временную запись на позиции pos, а после ответа
// сервера ставит на то же место подтверждённую.
func create[T optimistic.Record](ctx context.Context, v view[T], op string, temp T, pos optimistic.Position, call func(ctx context.Context) (T, error)) *optimistic.Handle {
	return optimistic.Run(ctx, v.ctrl, optimistic.Mutation[T, T]{
		Name:   op,
		Intent: optimistic.Add(temp, pos),
		Do:     call,
		Commit: func(base []T, rec T) []T {
			return optimistic.Reduce(base, optimistic.Add(rec, pos))
		},
		Retryable: true,
	})
}

// replaceRecord ставит rec на место записи с id.
func replaceRecord[T optimistic.Record](base []T, id string, rec T) []T {
	out := make([]T, len(base))
	for i, r := range base {
		if r.RecordID() == id {
			r = rec
		}
		out[i] = r
	}
	return out
}
