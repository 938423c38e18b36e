package screen

import (
	"context"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/optimistic"
	"github.com/UkralStul/optimistic-updates/internal/remote"
)

// ItemsPageSize - размер страницы большого списка.
const ItemsPageSize = 100

// Items - большой список с постраничной подгрузкой и редактированием.
type Items struct {
	view[domain.Item]
	svc   ItemService
	pager *optimistic.Pager[domain.Item]
}

func NewItems(svc ItemService, opts ...optimistic.Option) *Items {
	v := newView[domain.Item](opts)
	pager := optimistic.NewPager(v.ctrl, svc.LoadItems, optimistic.PagerConfig{
		Name:  remote.OpLoadItems,
		Limit: ItemsPageSize,
	})
	return &Items{view: v, svc: svc, pager: pager}
}

// Load загружает первую страницу и ждёт её.
func (it *Items) Load(ctx context.Context) error {
	h, ok := it.pager.LoadMore(ctx)
	if !ok {
		return nil
	}
	return h.Wait(ctx)
}

func (it *Items) LoadMore(ctx context.Context) (*optimistic.Handle, bool) {
	return it.pager.LoadMore(ctx)
}

func (it *Items) Exhausted() bool { return it.pager.Exhausted() }

func (it *Items) Items() []domain.Item { return it.Snapshot() }

func (it *Items) Add(ctx context.Context, in domain.NewItem) (*optimistic.Handle, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	temp := domain.Item{
		ID:        domain.NewTempID(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		CreatedAt: time.Now().UTC(),
	}
	return create(ctx, it.view, remote.OpCreateItem, temp, optimistic.Prepend, func(ctx context.Context) (domain.Item, error) {
		return it.svc.CreateItem(ctx, in)
	}), nil
}

func (it *Items) ToggleLike(ctx context.Context, id string) (*optimistic.Handle, error) {
	return toggleLike(ctx, it.view, remote.OpLikeItem, id, it.svc.LikeItem)
}

func (it *Items) Delete(ctx context.Context, id string) (*optimistic.Handle, error) {
	return remove(ctx, it.view, remote.OpDeleteItem, id, it.svc.DeleteItem)
}

// Update сразу показывает изменённые поля; в базу попадает запись,
// которую вернул сервер.
func (it *Items) Update(ctx context.Context, id string, patch domain.ItemPatch) (*optimistic.Handle, error) {
	if patch.Empty() {
		return nil, &domain.ValidationError{Field: "patch", Rule: "required"}
	}
	if err := domain.Validate(patch); err != nil {
		return nil, err
	}
	if _, err := it.confirmed(id); err != nil {
		return nil, err
	}
	return optimistic.Run(ctx, it.ctrl, optimistic.Mutation[domain.Item, domain.Item]{
		Name:   remote.OpUpdateItem,
		Intent: optimistic.Update[domain.Item](id, patch.Fields()),
		Do: func(ctx context.Context) (domain.Item, error) {
			return it.svc.UpdateItem(ctx, id, patch)
		},
		Commit: func(base []domain.Item, updated domain.Item) []domain.Item {
			return replaceRecord(base, id, updated)
		},
		Retryable: true,
	}), nil
}
