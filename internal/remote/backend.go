// Package remote - "серверная" сторона демонстрации: операции, которые экраны
// вызывают в фоне. Каждая операция проходит через политику имитации сети
// и только затем трогает хранилище.
package remote

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/dataloader"
	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"go.uber.org/zap"
)

// EventKind - вид подтверждённого изменения.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event - подтверждённое сервером изменение записи.
type Event struct {
	Kind     EventKind `json:"kind"`
	Resource string    `json:"resource"`
	ID       string    `json:"id"`
	Record   any       `json:"record,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher рассылает события подписчикам.
type Publisher interface {
	Publish(e Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Option настраивает Backend.
type Option func(*Backend)

func WithPublisher(p Publisher) Option         { return func(b *Backend) { b.pub = p } }
func WithLogger(l *zap.Logger) Option          { return func(b *Backend) { b.logger = l } }
func WithInjector(i *simulate.Injector) Option { return func(b *Backend) { b.inj = i } }

// Backend реализует все коллабораторы экранов поверх Storage.
type Backend struct {
	store    storage.Storage
	policies map[string]simulate.Policy
	inj      *simulate.Injector
	pub      Publisher
	logger   *zap.Logger
}

// NewBackend создаёт backend. Отсутствующие в policies операции берутся из DefaultPolicies.
func NewBackend(store storage.Storage, policies map[string]simulate.Policy, opts ...Option) *Backend {
	merged := DefaultPolicies()
	for name, p := range policies {
		merged[name] = p
	}
	b := &Backend{
		store:    store,
		policies: merged,
		inj:      simulate.NewInjector(uint64(time.Now().UnixNano())),
		pub:      nopPublisher{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store отдаёт хранилище (для заполнения тестовыми данными).
func (b *Backend) Store() storage.Storage { return b.store }

// Policy возвращает действующую политику операции.
func (b *Backend) Policy(op string) simulate.Policy { return b.policies[op] }

func (b *Backend) simulate(ctx context.Context, op string) error {
	if err := b.inj.Do(ctx, op, b.policies[op]); err != nil {
		b.logger.Info("simulated failure", zap.String("op", op), zap.Error(err))
		return err
	}
	return nil
}

func (b *Backend) publish(kind EventKind, resource, id string, rec any) {
	b.pub.Publish(Event{Kind: kind, Resource: resource, ID: id, Record: rec, At: time.Now().UTC()})
}

// === Posts ===

func (b *Backend) ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	if err := b.simulate(ctx, OpListPosts); err != nil {
		return nil, err
	}
	posts, err := b.store.GetPosts(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return values(posts), nil
}

func (b *Backend) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Post{}, err
	}
	if err := b.simulate(ctx, OpCreatePost); err != nil {
		return domain.Post{}, err
	}
	post, err := b.store.CreatePost(ctx, &domain.Post{
		Title:           in.Title,
		Content:         in.Content,
		AuthorID:        in.AuthorID,
		CommentsEnabled: true,
		Published:       true,
	})
	if err != nil {
		return domain.Post{}, err
	}
	b.publish(EventCreated, "post", post.ID, post)
	return *post, nil
}

func (b *Backend) LikePost(ctx context.Context, id string, liked bool) error {
	if err := b.simulate(ctx, OpLikePost); err != nil {
		return err
	}
	post, err := b.store.SetPostLiked(ctx, id, liked)
	if err != nil {
		return err
	}
	b.publish(EventUpdated, "post", id, post)
	return nil
}

func (b *Backend) DeletePost(ctx context.Context, id string) error {
	if err := b.simulate(ctx, OpDeletePost); err != nil {
		return err
	}
	if err := b.store.DeletePost(ctx, id); err != nil {
		return err
	}
	b.publish(EventDeleted, "post", id, nil)
	return nil
}

func (b *Backend) SetCommentsEnabled(ctx context.Context, postID string, enabled bool) (domain.Post, error) {
	post, err := b.store.ToggleComments(ctx, postID, enabled)
	if err != nil {
		return domain.Post{}, err
	}
	b.publish(EventUpdated, "post", postID, post)
	return *post, nil
}

// === Comments ===

func (b *Backend) CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Comment{}, err
	}
	if err := b.simulate(ctx, OpCreateComment); err != nil {
		return domain.Comment{}, err
	}
	c, err := b.store.CreateComment(ctx, &domain.Comment{
		PostID:   in.PostID,
		ParentID: in.ParentID,
		AuthorID: in.AuthorID,
		Content:  in.Content,
	})
	if err != nil {
		return domain.Comment{}, err
	}
	b.publish(EventCreated, "comment", c.ID, c)
	return *c, nil
}

func (b *Backend) LikeComment(ctx context.Context, id string, liked bool) error {
	if err := b.simulate(ctx, OpLikeComment); err != nil {
		return err
	}
	c, err := b.store.SetCommentLiked(ctx, id, liked)
	if err != nil {
		return err
	}
	b.publish(EventUpdated, "comment", id, c)
	return nil
}

func (b *Backend) DeleteComment(ctx context.Context, id string) error {
	if err := b.simulate(ctx, OpDeleteComment); err != nil {
		return err
	}
	if err := b.store.DeleteComment(ctx, id); err != nil {
		return err
	}
	b.publish(EventDeleted, "comment", id, nil)
	return nil
}

// LoadComments отдаёт страницу корневых комментариев поста вместе с ответами.
func (b *Backend) LoadComments(ctx context.Context, postID string, req optimistic.PageRequest) ([]domain.Comment, error) {
	if err := b.simulate(ctx, OpLoadComments); err != nil {
		return nil, err
	}
	args := storage.PaginationArgs{Limit: req.Limit}
	if req.Cursor != "" {
		cursor := req.Cursor
		args.Cursor = &cursor
	}
	page, err := b.store.GetCommentsByPostID(ctx, postID, args)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(page))
	for i, c := range page {
		ids[i] = c.ID
	}
	replies, err := dataloader.LoadReplies(ctx, b.store, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Comment, len(page))
	for i, c := range page {
		out[i] = *c
		out[i].Replies = replies[c.ID]
	}
	return out, nil
}

// === Todos ===

func (b *Backend) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	todos, err := b.store.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	return values(todos), nil
}

func (b *Backend) CreateTodo(ctx context.Context, in domain.NewTodo) (domain.Todo, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Todo{}, err
	}
	if err := b.simulate(ctx, OpCreateTodo); err != nil {
		return domain.Todo{}, err
	}
	t, err := b.store.CreateTodo(ctx, &domain.Todo{Text: in.Text})
	if err != nil {
		return domain.Todo{}, err
	}
	b.publish(EventCreated, "todo", t.ID, t)
	return *t, nil
}

func (b *Backend) ToggleTodo(ctx context.Context, id string, completed bool) error {
	if err := b.simulate(ctx, OpToggleTodo); err != nil {
		return err
	}
	t, err := b.store.SetTodoCompleted(ctx, id, completed)
	if err != nil {
		return err
	}
	b.publish(EventUpdated, "todo", id, t)
	return nil
}

func (b *Backend) DeleteTodo(ctx context.Context, id string) error {
	if err := b.simulate(ctx, OpDeleteTodo); err != nil {
		return err
	}
	if err := b.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	b.publish(EventDeleted, "todo", id, nil)
	return nil
}

// === Items ===

func (b *Backend) LoadItems(ctx context.Context, req optimistic.PageRequest) ([]domain.Item, error) {
	if err := b.simulate(ctx, OpLoadItems); err != nil {
		return nil, err
	}
	items, err := b.store.ListItems(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return values(items), nil
}

func (b *Backend) CreateItem(ctx context.Context, in domain.NewItem) (domain.Item, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Item{}, err
	}
	if err := b.simulate(ctx, OpCreateItem); err != nil {
		return domain.Item{}, err
	}
	it, err := b.store.CreateItem(ctx, &domain.Item{Title: in.Title, Content: in.Content, Category: in.Category})
	if err != nil {
		return domain.Item{}, err
	}
	b.publish(EventCreated, "item", it.ID, it)
	return *it, nil
}

func (b *Backend) LikeItem(ctx context.Context, id string, liked bool) error {
	if err := b.simulate(ctx, OpLikeItem); err != nil {
		return err
	}
	it, err := b.store.SetItemLiked(ctx, id, liked)
	if err != nil {
		return err
	}
	b.publish(EventUpdated, "item", id, it)
	return nil
}

func (b *Backend) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	if err := domain.Validate(patch); err != nil {
		return domain.Item{}, err
	}
	if err := b.simulate(ctx, OpUpdateItem); err != nil {
		return domain.Item{}, err
	}
	it, err := b.store.UpdateItem(ctx, id, patch)
	if err != nil {
		return domain.Item{}, err
	}
	b.publish(EventUpdated, "item", id, it)
	return *it, nil
}

func (b *Backend) DeleteItem(ctx context.Context, id string) error {
	if err := b.simulate(ctx, OpDeleteItem); err != nil {
		return err
	}
	if err := b.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	b.publish(EventDeleted, "item", id, nil)
	return nil
}

// === Chat ===

func (b *Backend) ListMessages(ctx context.Context) ([]domain.Message, error) {
	msgs, err := b.store.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	return values(msgs), nil
}

// SendMessage сохраняет сообщение пользователя и ответ бота на него.
func (b *Backend) SendMessage(ctx context.Context, in domain.NewMessage) (domain.Exchange, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Exchange{}, err
	}
	if err := b.simulate(ctx, OpSendMessage); err != nil {
		return domain.Exchange{}, err
	}
	userMsg, err := b.store.AppendMessage(ctx, &domain.Message{Text: in.Text, Sender: domain.SenderUser, Status: domain.StatusSent})
	if err != nil {
		return domain.Exchange{}, err
	}
	b.publish(EventCreated, "message", userMsg.ID, userMsg)

	reply, err := b.store.AppendMessage(ctx, &domain.Message{
		Text:   BotReplies[b.inj.Intn(len(BotReplies))],
		Sender: domain.SenderBot,
		Status: domain.StatusSent,
	})
	if err != nil {
		return domain.Exchange{}, err
	}
	b.publish(EventCreated, "message", reply.ID, reply)
	return domain.Exchange{Message: *userMsg, Reply: *reply}, nil
}

func values[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}
