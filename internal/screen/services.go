// Package screen - демонстрационные экраны. Каждый экран владеет своим
// контроллером и ходит в сервер через узкий интерфейс-коллаборатор.
package screen

import (
	"context"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
)

// PostService - серверные действия ленты постов.
type PostService interface {
	ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error)
	CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error)
	LikePost(ctx context.Context, id string, liked bool) error
	DeletePost(ctx context.Context, id string) error
}

// CommentService - серверные действия с комментариями поста.
type CommentService interface {
	LoadComments(ctx context.Context, postID string, req optimistic.PageRequest) ([]domain.Comment, error)
	CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error)
	LikeComment(ctx context.Context, id string, liked bool) error
	DeleteComment(ctx context.Context, id string) error
}

// TodoService - серверные действия списка дел.
type TodoService interface {
	ListTodos(ctx context.Context) ([]domain.Todo, error)
	CreateTodo(ctx context.Context, in domain.NewTodo) (domain.Todo, error)
	ToggleTodo(ctx context.Context, id string, completed bool) error
	DeleteTodo(ctx context.Context, id string) error
}

// ItemService - серверные действия большого списка.
type ItemService interface {
	LoadItems(ctx context.Context, req optimistic.PageRequest) ([]domain.Item, error)
	CreateItem(ctx context.Context, in domain.NewItem) (domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error)
	LikeItem(ctx context.Context, id string, liked bool) error
	DeleteItem(ctx context.Context, id string) error
}

// ChatService - серверные действия чата.
type ChatService interface {
	ListMessages(ctx context.Context) ([]domain.Message, error)
	SendMessage(ctx context.Context, in domain.NewMessage) (domain.Exchange, error)
}
