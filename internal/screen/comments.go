package screen

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
)

// Размеры страниц бесконечной ленты комментариев.
const (
	FeedInitialPage = 50
	FeedPageSize    = 20
)

// CommentThread - комментарии одного поста с ответами.
type CommentThread struct {
	view[domain.Comment]
	svc      CommentService
	postID   string
	authorID string
}

// NewCommentThread создаёт экран комментариев поста postID от имени authorID.
func NewCommentThread(svc CommentService, postID, authorID string, opts ...optimistic.Option) *CommentThread {
	return &CommentThread{
		view:     newView[domain.Comment](opts),
		svc:      svc,
		postID:   postID,
		authorID: authorID,
	}
}

// Load загружает все корневые комментарии поста.
func (c *CommentThread) Load(ctx context.Context) error {
	comments, err := c.svc.LoadComments(ctx, c.postID, optimistic.PageRequest{})
	if err != nil {
		return domain.AsOperationFailed(remote.OpLoadComments, err)
	}
	c.replaceAll(comments)
	return nil
}

func (c *CommentThread) Comments() []domain.Comment { return c.Snapshot() }

// AddComment показывает комментарий первым в списке, пока сервер его не подтвердит.
func (c *CommentThread) AddComment(ctx context.Context, content string) (*optimistic.Handle, error) {
	in := domain.NewComment{PostID: c.postID, AuthorID: c.authorID, Content: content}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	return create(ctx, c.view, remote.OpCreateComment, c.temp(in), optimistic.Prepend, func(ctx context.Context) (domain.Comment, error) {
		return c.svc.CreateComment(ctx, in)
	}), nil
}

// Reply добавляет ответ к корневому комментарию.
func (c *CommentThread) Reply(ctx context.Context, parentID, content string) (*optimistic.Handle, error) {
	if _, err := c.confirmed(parentID); err != nil {
		return nil, err
	}
	in := domain.NewComment{PostID: c.postID, ParentID: &parentID, AuthorID: c.authorID, Content: content}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	return optimistic.Run(ctx, c.ctrl, optimistic.Mutation[domain.Comment, domain.Comment]{
		Name:   remote.OpCreateComment,
		Intent: optimistic.AddChild(parentID, c.temp(in)),
		Do: func(ctx context.Context) (domain.Comment, error) {
			return c.svc.CreateComment(ctx, in)
		},
		Commit: func(base []domain.Comment, reply domain.Comment) []domain.Comment {
			return optimistic.Reduce(base, optimistic.AddChild(parentID, reply))
		},
		Retryable: true,
	}), nil
}

func (c *CommentThread) ToggleLike(ctx context.Context, id string) (*optimistic.Handle, error) {
	return toggleLike(ctx, c.view, remote.OpLikeComment, id, c.svc.LikeComment)
}

func (c *CommentThread) DeleteComment(ctx context.Context, id string) (*optimistic.Handle, error) {
	return remove(ctx, c.view, remote.OpDeleteComment, id, c.svc.DeleteComment)
}

func (c *CommentThread) temp(in domain.NewComment) domain.Comment {
	return domain.Comment{
		ID:        domain.NewTempID(),
		PostID:    in.PostID,
		ParentID:  in.ParentID,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		CreatedAt: time.Now().UTC(),
	}
}

// Feed - бесконечная лента комментариев: те же действия, но данные
// подгружаются страницами.
type Feed struct {
	*CommentThread
	pager *optimistic.Pager[domain.Comment]
}

func NewFeed(svc CommentService, postID, authorID string, opts ...optimistic.Option) *Feed {
	c := NewCommentThread(svc, postID, authorID, opts...)
	pager := optimistic.NewPager(c.ctrl, func(ctx context.Context, req optimistic.PageRequest) ([]domain.Comment, error) {
		return svc.LoadComments(ctx, postID, req)
	}, optimistic.PagerConfig{
		Name:         remote.OpLoadComments,
		Limit:        FeedPageSize,
		InitialLimit: FeedInitialPage,
	})
	return &Feed{CommentThread: c, pager: pager}
}

// Load загружает первую страницу и ждёт её.
func (f *Feed) Load(ctx context.Context) error {
	h, ok := f.pager.LoadMore(ctx)
	if !ok {
		return nil
	}
	return h.Wait(ctx)
}

// LoadMore запрашивает следующую страницу. false - загрузка уже идёт или данные кончились.
func (f *Feed) LoadMore(ctx context.Context) (*optimistic.Handle, bool) {
	return f.pager.LoadMore(ctx)
}

func (f *Feed) State() optimistic.PagerState { return f.pager.State() }

func (f *Feed) Exhausted() bool { return f.pager.Exhausted() }
