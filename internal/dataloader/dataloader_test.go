package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore отвечает только на батч-запрос ответов и считает вызовы.
type countingStore struct {
	storage.Storage
	calls atomic.Int32
	err   error
}

func (s *countingStore) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]*domain.Comment, len(parentIDs))
	for _, id := range parentIDs {
		parent := id
		out[id] = []*domain.Comment{{ID: "reply-of-" + id, ParentID: &parent}}
	}
	return out, nil
}

func TestLoadReplies_SingleBatch(t *testing.T) {
	store := &countingStore{}
	replies, err := LoadReplies(context.Background(), store, []string{"c1", "c2", "c3"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.calls.Load())
	require.Len(t, replies, 3)
	assert.Equal(t, "reply-of-c2", replies["c2"][0].ID)
}

func TestLoadReplies_Empty(t *testing.T) {
	store := &countingStore{}
	replies, err := LoadReplies(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Zero(t, store.calls.Load())
}

func TestLoadReplies_Error(t *testing.T) {
	store := &countingStore{err: errors.New("db down")}
	_, err := LoadReplies(context.Background(), store, []string{"c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	var got *Loaders
	h := Middleware(&countingStore{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
