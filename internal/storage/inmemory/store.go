package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/google/uuid"
)

var _ storage.Storage = (*Store)(nil)

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии, чтобы вызывающий код не мог менять состояние хранилища в обход мьютекса.
type Store struct {
	mu               sync.RWMutex
	posts            map[string]*domain.Post
	postOrder        []string
	comments         map[string]*domain.Comment
	commentsByPost   map[string][]string // map[postID][]commentID (только корневые)
	commentsByParent map[string][]string // map[parentID][]commentID
	todos            map[string]*domain.Todo
	todoOrder        []string
	items            map[string]*domain.Item
	itemOrder        []string
	messages         []*domain.Message

	now func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:            make(map[string]*domain.Post),
		comments:         make(map[string]*domain.Comment),
		commentsByPost:   make(map[string][]string),
		commentsByParent: make(map[string][]string),
		todos:            make(map[string]*domain.Todo),
		items:            make(map[string]*domain.Item),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *post
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	s.posts[p.ID] = &p
	s.postOrder = append(s.postOrder, p.ID)
	return copyPost(&p), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.NotFound("post", id)
	}
	return copyPost(post), nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Новые посты первыми; при равном времени - в обратном порядке вставки
	allPosts := make([]*domain.Post, 0, len(s.posts))
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		if p, ok := s.posts[s.postOrder[i]]; ok {
			allPosts = append(allPosts, p)
		}
	}
	sort.SliceStable(allPosts, func(i, j int) bool {
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})

	return window(allPosts, limit, offset, copyPost), nil
}

func (s *Store) SetPostLiked(ctx context.Context, id string, liked bool) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, domain.NotFound("post", id)
	}
	post.Liked, post.Likes = applyLike(post.Liked, post.Likes, liked)
	return copyPost(post), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return domain.NotFound("post", id)
	}
	delete(s.posts, id)
	s.postOrder = without(s.postOrder, id)
	for _, cID := range s.commentsByPost[id] {
		s.deleteCommentLocked(cID)
	}
	delete(s.commentsByPost, id)
	return nil
}

func (s *Store) ToggleComments(ctx context.Context, postID string, enable bool) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, domain.NotFound("post", postID)
	}
	post.CommentsEnabled = enable
	return copyPost(post), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	post, ok := s.posts[comment.PostID]
	if !ok {
		return nil, domain.NotFound("post", comment.PostID)
	}
	if !post.CommentsEnabled {
		return nil, domain.ErrCommentsDisabled
	}

	if err := domain.CheckCommentContent(comment.Content); err != nil {
		return nil, err
	}

	// Проверка родительского комментария
	if comment.ParentID != nil {
		if _, ok := s.comments[*comment.ParentID]; !ok {
			return nil, domain.NotFound("parent comment", *comment.ParentID)
		}
	}

	c := *comment
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	c.Replies = nil
	s.comments[c.ID] = &c

	// Обновление индексов для иерархии
	if c.ParentID == nil {
		s.commentsByPost[c.PostID] = append(s.commentsByPost[c.PostID], c.ID)
	} else {
		s.commentsByParent[*c.ParentID] = append(s.commentsByParent[*c.ParentID], c.ID)
	}

	return copyComment(&c), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.NotFound("comment", id)
	}
	return copyComment(comment), nil
}

func (s *Store) SetCommentLiked(ctx context.Context, id string, liked bool) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.NotFound("comment", id)
	}
	comment.Liked, comment.Likes = applyLike(comment.Liked, comment.Likes, liked)
	return copyComment(comment), nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return domain.NotFound("comment", id)
	}
	if comment.ParentID == nil {
		s.commentsByPost[comment.PostID] = without(s.commentsByPost[comment.PostID], id)
	} else {
		s.commentsByParent[*comment.ParentID] = without(s.commentsByParent[*comment.ParentID], id)
	}
	s.deleteCommentLocked(id)
	return nil
}

// deleteCommentLocked удаляет комментарий вместе со всей веткой ответов.
func (s *Store) deleteCommentLocked(id string) {
	for _, child := range s.commentsByParent[id] {
		s.deleteCommentLocked(child)
	}
	delete(s.commentsByParent, id)
	delete(s.comments, id)
}

// === Pagination Methods ===

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commentIDs, ok := s.commentsByPost[postID]
	if !ok {
		return []*domain.Comment{}, nil
	}

	return s.paginateComments(commentIDs, args)
}

func (s *Store) GetCommentsByParentID(ctx context.Context, parentID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commentIDs, ok := s.commentsByParent[parentID]
	if !ok {
		return []*domain.Comment{}, nil
	}

	return s.paginateComments(commentIDs, args)
}

// paginateComments - вспомогательная функция для пагинации.
// Неизвестный курсор - ошибка NotFound, а не первая страница.
func (s *Store) paginateComments(ids []string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	allComments := s.sortedComments(ids)

	startIndex := 0
	if args.Cursor != nil {
		startIndex = -1
		for i, c := range allComments {
			if c.ID == *args.Cursor {
				startIndex = i + 1
				break
			}
		}
		if startIndex < 0 {
			return nil, domain.NotFound("comment", *args.Cursor)
		}
	}

	return window(allComments, args.Limit, startIndex, copyComment), nil
}

// sortedComments упорядочивает комментарии по времени создания, чтобы пагинация была консистентной.
func (s *Store) sortedComments(ids []string) []*domain.Comment {
	out := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(parentIDs))
	for _, pID := range parentIDs {
		children := s.sortedComments(s.commentsByParent[pID])
		copied := make([]*domain.Comment, len(children))
		for i, c := range children {
			copied[i] = copyComment(c)
		}
		results[pID] = copied
	}

	return results, nil
}

// === Todo Methods ===

func (s *Store) ListTodos(ctx context.Context) ([]*domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Новые задачи сверху
	out := make([]*domain.Todo, 0, len(s.todoOrder))
	for i := len(s.todoOrder) - 1; i >= 0; i-- {
		t := *s.todos[s.todoOrder[i]]
		out = append(out, &t)
	}
	return out, nil
}

func (s *Store) CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *todo
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	s.todos[t.ID] = &t
	s.todoOrder = append(s.todoOrder, t.ID)
	out := t
	return &out, nil
}

func (s *Store) SetTodoCompleted(ctx context.Context, id string, completed bool) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return nil, domain.NotFound("todo", id)
	}
	t.Completed = completed
	out := *t
	return &out, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return domain.NotFound("todo", id)
	}
	delete(s.todos, id)
	s.todoOrder = without(s.todoOrder, id)
	return nil
}

// === Item Methods ===

func (s *Store) ListItems(ctx context.Context, limit, offset int) ([]*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		all = append(all, s.items[id])
	}
	return window(all, limit, offset, copyItem), nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := *item
	it.ID = uuid.NewString()
	it.CreatedAt = s.now()
	s.items[it.ID] = &it
	s.itemOrder = append(s.itemOrder, it.ID)
	return copyItem(&it), nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.NotFound("item", id)
	}
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	return copyItem(it), nil
}

func (s *Store) SetItemLiked(ctx context.Context, id string, liked bool) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.NotFound("item", id)
	}
	it.Liked, it.Likes = applyLike(it.Liked, it.Likes, liked)
	return copyItem(it), nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.NotFound("item", id)
	}
	delete(s.items, id)
	s.itemOrder = without(s.itemOrder, id)
	return nil
}

// === Message Methods ===

func (s *Store) ListMessages(ctx context.Context) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Message, len(s.messages))
	for i, m := range s.messages {
		c := *m
		out[i] = &c
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	m.ID = uuid.NewString()
	m.CreatedAt = s.now()
	if m.Status == "" {
		m.Status = domain.StatusSent
	}
	s.messages = append(s.messages, &m)
	out := m
	return &out, nil
}

// === helpers ===

// applyLike - серверная сторона лайка: повторный лайк ничего не меняет, счётчик не уходит ниже нуля.
func applyLike(current bool, likes int, liked bool) (bool, int) {
	switch {
	case liked && !current:
		return true, likes + 1
	case !liked && current:
		return false, max(0, likes-1)
	default:
		return current, likes
	}
}

func window[T any](all []*T, limit, offset int, cp func(*T) *T) []*T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*T, 0, end-offset)
	for _, v := range all[offset:end] {
		out = append(out, cp(v))
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func copyPost(p *domain.Post) *domain.Post {
	c := *p
	c.Comments = nil
	return &c
}

func copyComment(c *domain.Comment) *domain.Comment {
	out := *c
	out.Replies = nil
	return &out
}

func copyItem(i *domain.Item) *domain.Item {
	out := *i
	return &out
}
