package screen

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
)

// Todos - список дел.
type Todos struct {
	view[domain.Todo]
	svc TodoService
}

func NewTodos(svc TodoService, opts ...optimistic.Option) *Todos {
	return &Todos{view: newView[domain.Todo](opts), svc: svc}
}

func (t *Todos) Load(ctx context.Context) error {
	todos, err := t.svc.ListTodos(ctx)
	if err != nil {
		return domain.AsOperationFailed("listTodos", err)
	}
	t.replaceAll(todos)
	return nil
}

func (t *Todos) Todos() []domain.Todo { return t.Snapshot() }

// Add показывает новое дело первым в списке.
func (t *Todos) Add(ctx context.Context, text string) (*optimistic.Handle, error) {
	in := domain.NewTodo{Text: text}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	temp := domain.Todo{ID: domain.NewTempID(), Text: text, CreatedAt: time.Now().UTC()}
	return create(ctx, t.view, remote.OpCreateTodo, temp, optimistic.Prepend, func(ctx context.Context) (domain.Todo, error) {
		return t.svc.CreateTodo(ctx, in)
	}), nil
}

// Toggle переключает отметку о выполнении. Сервер получает то значение,
// которое пользователь увидит после переключения.
func (t *Todos) Toggle(ctx context.Context, id string) (*optimistic.Handle, error) {
	rec, err := t.confirmed(id)
	if err != nil {
		return nil, err
	}
	completed := !rec.Completed
	intent := optimistic.Toggle[domain.Todo](id)
	return optimistic.Run(ctx, t.ctrl, optimistic.Mutation[domain.Todo, struct{}]{
		Name:   remote.OpToggleTodo,
		Intent: intent,
		Do: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, t.svc.ToggleTodo(ctx, id, completed)
		},
		Commit: func(base []domain.Todo, _ struct{}) []domain.Todo {
			return setCompleted(base, id, completed)
		},
		Retryable: true,
	}), nil
}

func (t *Todos) Delete(ctx context.Context, id string) (*optimistic.Handle, error) {
	return remove(ctx, t.view, remote.OpDeleteTodo, id, t.svc.DeleteTodo)
}

// setCompleted записывает в базу значение, отправленное на сервер.
func setCompleted(base []domain.Todo, id string, completed bool) []domain.Todo {
	out := make([]domain.Todo, len(base))
	for i, todo := range base {
		if todo.ID == id {
			todo.Completed = completed
		}
		out[i] = todo
	}
	return out
}
