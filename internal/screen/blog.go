package screen

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
)

// BlogPageSize - сколько постов показывает лента.
const BlogPageSize = 50

// Blog - лента постов: создание, лайк, удаление.
type Blog struct {
	view[domain.Post]
	svc PostService
}

func NewBlog(svc PostService, opts ...optimistic.Option) *Blog {
	return &Blog{view: newView[domain.Post](opts), svc: svc}
}

// Load загружает первую страницу ленты.
func (b *Blog) Load(ctx context.Context) error {
	posts, err := b.svc.ListPosts(ctx, BlogPageSize, 0)
	if err != nil {
		return domain.AsOperationFailed(remote.OpListPosts, err)
	}
	b.replaceAll(posts)
	return nil
}

// Posts - посты в том виде, в каком их видит пользователь.
func (b *Blog) Posts() []domain.Post { return b.Snapshot() }

// CreatePost сразу показывает пост наверху ленты.
func (b *Blog) CreatePost(ctx context.Context, in domain.NewPost) (*optimistic.Handle, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	temp := domain.Post{
		ID:              domain.NewTempID(),
		Title:           in.Title,
		Content:         in.Content,
		AuthorID:        in.AuthorID,
		CommentsEnabled: true,
		Published:       true,
		CreatedAt:       time.Now().UTC(),
	}
	return create(ctx, b.view, remote.OpCreatePost, temp, optimistic.Prepend, func(ctx context.Context) (domain.Post, error) {
		return b.svc.CreatePost(ctx, in)
	}), nil
}

func (b *Blog) ToggleLike(ctx context.Context, id string) (*optimistic.Handle, error) {
	return toggleLike(ctx, b.view, remote.OpLikePost, id, b.svc.LikePost)
}

func (b *Blog) DeletePost(ctx context.Context, id string) (*optimistic.Handle, error) {
	return remove(ctx, b.view, remote.OpDeletePost, id, b.svc.DeletePost)
}
