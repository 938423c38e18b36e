package storage

import (
	"context"

	"github.com/UkralStul/optimistic-updates/internal/domain"
)

// PaginationArgs - аргументы для курсорной пагинации.
type PaginationArgs struct {
	Limit  int
	Cursor *string
}

// Storage определяет контракт для хранилищ.
// Это "серверная" сторона: сюда попадают только подтверждённые изменения.
type Storage interface {
	GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	SetPostLiked(ctx context.Context, id string, liked bool) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	ToggleComments(ctx context.Context, postID string, enable bool) (*domain.Post, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	SetCommentLiked(ctx context.Context, id string, liked bool) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// Методы для пагинации
	GetCommentsByPostID(ctx context.Context, postID string, args PaginationArgs) ([]*domain.Comment, error)
	GetCommentsByParentID(ctx context.Context, parentID string, args PaginationArgs) ([]*domain.Comment, error)

	// Методы для Dataloader'ов
	GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error)

	ListTodos(ctx context.Context) ([]*domain.Todo, error)
	CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error)
	SetTodoCompleted(ctx context.Context, id string, completed bool) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) error

	ListItems(ctx context.Context, limit, offset int) ([]*domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error)
	SetItemLiked(ctx context.Context, id string, liked bool) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error

	ListMessages(ctx context.Context) ([]*domain.Message, error)
	AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
}
