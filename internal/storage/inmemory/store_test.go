// internal/storage/inmemory/store_test.go

package inmemory

import (
	"context"
	"strings"
	"testing"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore создает хранилище и один пост для тестов
func newTestStore(t *testing.T) (storage.Storage, *domain.Post) {
	store := New()
	ctx := context.Background()
	post, err := store.CreatePost(ctx, &domain.Post{
		Title:           "Test Post",
		Content:         "Content",
		AuthorID:        "user-1",
		CommentsEnabled: true,
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, retrieved.Title)

	_, err = store.GetPostByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "post with id non-existent-id not found", err.Error())
}

func TestStore_PostLikeIsIdempotent(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	p, err := store.SetPostLiked(ctx, post.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)

	p, err = store.SetPostLiked(ctx, post.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)
	assert.True(t, p.Liked)

	p, err = store.SetPostLiked(ctx, post.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Likes)
	assert.False(t, p.Liked)
}

func TestStore_DeletePostRemovesComments(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	c, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "bye"})
	require.NoError(t, err)

	require.NoError(t, store.DeletePost(ctx, post.ID))
	_, err = store.GetCommentByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.DeletePost(ctx, post.ID), domain.ErrNotFound)
}

func TestStore_GetPostsNewestFirst(t *testing.T) {
	store, first := newTestStore(t)
	ctx := context.Background()

	second, err := store.CreatePost(ctx, &domain.Post{Title: "Second", Content: "c", AuthorID: "u"})
	require.NoError(t, err)

	posts, err := store.GetPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)

	posts, err = store.GetPosts(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStore_CreateComment_Success(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "First comment!"})
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.False(t, domain.IsTentative(comment.ID))

	comments, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, "First comment!", comments[0].Content)
}

func TestStore_CreateComment_CommentsDisabled(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	// Отключаем комментарии
	_, err := store.ToggleComments(ctx, post.ID, false)
	require.NoError(t, err)

	// Пытаемся создать комментарий
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "This should fail"})
	require.Error(t, err)
	assert.Equal(t, "comments are disabled for this post", err.Error())
}

func TestStore_CreateComment_TooLong(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	longContent := strings.Repeat("a", 2001)
	_, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: longContent})
	require.Error(t, err)
	assert.Equal(t, "comment content is too long", err.Error())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_CreateComment_EmptyContent(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "  "})
	require.Error(t, err)
	assert.Equal(t, "comment content cannot be empty", err.Error())
}

func TestStore_CreateNestedComment(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	parentComment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "Parent"})
	require.NoError(t, err)

	childComment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &parentComment.ID, AuthorID: "user-3", Content: "Child"})
	require.NoError(t, err)

	// Проверяем, что дочерний коммент не в корне поста
	rootComments, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rootComments, 1)
	assert.Equal(t, parentComment.ID, rootComments[0].ID)

	// Проверяем, что дочерний коммент находится у родителя
	children, err := store.GetCommentsByParentID(ctx, parentComment.ID, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, children, 1)
	assert.Equal(t, childComment.ID, children[0].ID)

	byParent, err := store.GetCommentsByParentIDs(ctx, []string{parentComment.ID, "nobody"})
	require.NoError(t, err)
	assert.Len(t, byParent[parentComment.ID], 1)
	assert.Empty(t, byParent["nobody"])

	// Удаление родителя удаляет и ответ
	require.NoError(t, store.DeleteComment(ctx, parentComment.ID))
	_, err = store.GetCommentByID(ctx, childComment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Pagination(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	// Создаем 5 комментариев
	for i := 0; i < 5; i++ {
		_, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-1", Content: "some comment"})
		require.NoError(t, err)
	}

	// Запрашиваем первую страницу из 2-х комментариев
	firstPage, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)

	// Запрашиваем вторую страницу из 3-х, используя курсор
	cursor := firstPage[1].ID // курсор - это ID последнего элемента на предыдущей странице
	secondPage, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 3, Cursor: &cursor})
	require.NoError(t, err)
	require.Len(t, secondPage, 3)

	// Убеждаемся, что ID не пересекаются
	assert.NotEqual(t, firstPage[0].ID, secondPage[0].ID)
	assert.NotEqual(t, firstPage[1].ID, secondPage[0].ID)

	// За последней страницей - пустой ответ
	cursor = secondPage[2].ID
	rest, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 3, Cursor: &cursor})
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestStore_PaginationUnknownCursor(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	var last *domain.Comment
	for i := 0; i < 3; i++ {
		c, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-1", Content: "some comment"})
		require.NoError(t, err)
		last = c
	}

	// Курсор удалён между запросами: первую страницу повторно не отдаём
	require.NoError(t, store.DeleteComment(ctx, last.ID))
	cursor := last.ID
	page, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 2, Cursor: &cursor})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, page)
}

func TestStore_Todos(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.CreateTodo(ctx, &domain.Todo{Text: "Learn Go"})
	require.NoError(t, err)
	second, err := store.CreateTodo(ctx, &domain.Todo{Text: "Write tests"})
	require.NoError(t, err)

	todos, err := store.ListTodos(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, second.ID, todos[0].ID)

	done, err := store.SetTodoCompleted(ctx, first.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	require.NoError(t, store.DeleteTodo(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteTodo(ctx, first.ID), domain.ErrNotFound)
}

func TestStore_Items(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.CreateItem(ctx, &domain.Item{Title: "t", Content: "c", Category: "Art"})
		require.NoError(t, err)
	}
	items, err := store.ListItems(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)

	title := "renamed"
	updated, err := store.UpdateItem(ctx, items[0].ID, domain.ItemPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "Art", updated.Category)

	liked, err := store.SetItemLiked(ctx, items[0].ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, liked.Likes)

	require.NoError(t, store.DeleteItem(ctx, items[0].ID))
	all, err := store.ListItems(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_Messages(t *testing.T) {
	store := New()
	ctx := context.Background()

	m, err := store.AppendMessage(ctx, &domain.Message{Text: "hi", Sender: domain.SenderUser})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, m.Status)

	msgs, err := store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
}
