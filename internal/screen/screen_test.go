package screen

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/UkralStul/optimistic-updates/internal/remote/client"
	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/UkralStul/optimistic-updates/internal/storage/inmemory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ PostService    = (*remote.Backend)(nil)
	_ CommentService = (*remote.Backend)(nil)
	_ TodoService    = (*remote.Backend)(nil)
	_ ItemService    = (*remote.Backend)(nil)
	_ ChatService    = (*remote.Backend)(nil)

	_ PostService    = (*client.Client)(nil)
	_ CommentService = (*client.Client)(nil)
	_ TodoService    = (*client.Client)(nil)
	_ ItemService    = (*client.Client)(nil)
	_ ChatService    = (*client.Client)(nil)
)

type env struct {
	backend *remote.Backend
	seeded  remote.Seeded
	inbox   *optimistic.Inbox
}

// newEnv поднимает сервер без задержек; overrides задают отказы отдельных операций.
func newEnv(t *testing.T, items int, overrides map[string]simulate.Policy) *env {
	t.Helper()
	policies := remote.DefaultPolicies()
	for name := range policies {
		policies[name] = simulate.Never
	}
	for name, p := range overrides {
		policies[name] = p
	}

	store := inmemory.New()
	seeded, err := remote.Seed(context.Background(), store, items)
	require.NoError(t, err)

	return &env{
		backend: remote.NewBackend(store, policies, remote.WithInjector(simulate.NewInjector(7).WithoutDelay())),
		seeded:  seeded,
		inbox:   &optimistic.Inbox{},
	}
}

// requireUniqueIDs проверяет, что запись с одним id встречается один раз.
func requireUniqueIDs[T optimistic.Record](t *testing.T, records []T) {
	t.Helper()
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		_, dup := seen[rec.RecordID()]
		require.False(t, dup, "duplicate %s", rec.RecordID())
		seen[rec.RecordID()] = struct{}{}
	}
}

func (e *env) opts() []optimistic.Option {
	return []optimistic.Option{
		optimistic.WithNotifier(e.inbox),
		optimistic.WithLogger(zap.NewNop()),
	}
}

// gatedPosts держит создание поста, пока тест не откроет gate.
type gatedPosts struct {
	PostService
	gate chan struct{}
}

func (g gatedPosts) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	<-g.gate
	return g.PostService.CreatePost(ctx, in)
}

// flakyTodos отклоняет первые fails вызовов CreateTodo.
type flakyTodos struct {
	TodoService
	fails atomic.Int32
}

func (f *flakyTodos) CreateTodo(ctx context.Context, in domain.NewTodo) (domain.Todo, error) {
	if f.fails.Add(-1) >= 0 {
		return domain.Todo{}, &domain.OperationFailed{Message: "Failed to add todo!", Retryable: true}
	}
	return f.TodoService.CreateTodo(ctx, in)
}

// flakyChat отклоняет первые fails отправок; gate, если задан, держит отправку.
type flakyChat struct {
	ChatService
	fails atomic.Int32
	gate  chan struct{}
}

func (f *flakyChat) SendMessage(ctx context.Context, in domain.NewMessage) (domain.Exchange, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.fails.Add(-1) >= 0 {
		return domain.Exchange{}, &domain.OperationFailed{Message: "Failed to send message", Retryable: true}
	}
	return f.ChatService.SendMessage(ctx, in)
}
