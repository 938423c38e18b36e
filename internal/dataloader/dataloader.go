package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/graph-gophers/dataloader"
	"github.com/pkg/errors"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	RepliesByCommentID *dataloader.Loader
}

// NewLoaders создаёт лоадеры поверх хранилища. Живут в рамках одного запроса.
func NewLoaders(store storage.Storage) *Loaders {
	// Батч-функция: один запрос к хранилищу на все ключи
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		parentIDs := keys.Keys()

		repliesMap, err := store.GetCommentsByParentIDs(ctx, parentIDs)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, parentID := range parentIDs {
			results[i] = &dataloader.Result{Data: repliesMap[parentID]}
		}
		return results
	}

	return &Loaders{
		RepliesByCommentID: dataloader.NewBatchedLoader(batchFn,
			dataloader.WithWait(time.Millisecond),
			dataloader.WithClearCacheOnBatch()),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLoaders кладёт лоадеры в контекст.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For извлекает лоадеры из контекста. Nil, если middleware не подключён.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// LoadReplies возвращает ответы для набора комментариев одним батчем.
// Без лоадеров в контексте создаётся одноразовый.
func LoadReplies(ctx context.Context, store storage.Storage, parentIDs []string) (map[string][]domain.Comment, error) {
	out := make(map[string][]domain.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	l := For(ctx)
	if l == nil {
		l = NewLoaders(store)
	}

	values, errs := l.RepliesByCommentID.LoadMany(ctx, dataloader.NewKeysFromStrings(parentIDs))()
	for i, id := range parentIDs {
		if i < len(errs) && errs[i] != nil {
			return nil, errors.Wrapf(errs[i], "load replies of %s", id)
		}
		if i >= len(values) {
			continue
		}
		replies, _ := values[i].([]*domain.Comment)
		converted := make([]domain.Comment, 0, len(replies))
		for _, r := range replies {
			converted = append(converted, *r)
		}
		out[id] = converted
	}
	return out, nil
}
