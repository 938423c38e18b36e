package optimistic

import (
	"context"
	"sync"

	"github.com/UkralStul/optimistic-updates/internal/domain"
)

// PagerState - состояние постраничной загрузки.
type PagerState int

const (
	PagerIdle PagerState = iota
	PagerLoading
	PagerExhausted
)

func (s PagerState) String() string {
	switch s {
	case PagerIdle:
		return "idle"
	case PagerLoading:
		return "loading"
	case PagerExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// PageRequest - запрос очередной страницы.
// Cursor - id последней загруженной страницами записи, которая ещё есть в базе (пусто для первой),
// Offset - сколько таких записей. Загрузчик использует то, что удобнее его хранилищу.
type PageRequest struct {
	Page   int
	Cursor string
	Offset int
	Limit  int
}

// PageLoader загружает страницу записей. Пустой срез означает конец данных.
type PageLoader[T Record] func(ctx context.Context, req PageRequest) ([]T, error)

// PagerConfig настраивает Pager.
type PagerConfig struct {
	Name         string
	Limit        int
	InitialLimit int // размер первой страницы; 0 - как Limit
}

// Pager подгружает страницы в базу контроллера.
// Переходы: idle -> loading -> idle (есть ещё) | exhausted (данных больше нет);
// ошибка возвращает в idle, чтобы можно было повторить.
//
// Позиция не хранится отдельно от базы: перед каждым запросом список
// загруженных id сверяется с базой, поэтому подтверждённые удаления
// сдвигают offset и cursor назад, а не пропускают записи.
type Pager[T Record] struct {
	mu     sync.Mutex
	state  PagerState
	page   int
	loaded []string // id из страниц в порядке сервера

	cfg  PagerConfig
	ctrl *Controller[T]
	load PageLoader[T]
}

func NewPager[T Record](ctrl *Controller[T], load PageLoader[T], cfg PagerConfig) *Pager[T] {
	if cfg.Name == "" {
		cfg.Name = "loadPage"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.InitialLimit <= 0 {
		cfg.InitialLimit = cfg.Limit
	}
	return &Pager[T]{cfg: cfg, ctrl: ctrl, load: load}
}

func (p *Pager[T]) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pager[T]) Loading() bool   { return p.State() == PagerLoading }
func (p *Pager[T]) Exhausted() bool { return p.State() == PagerExhausted }

// LoadMore запрашивает следующую страницу. Возвращает false, если загрузка
// уже идёт или данные исчерпаны; в этом случае загрузчик не вызывается.
func (p *Pager[T]) LoadMore(ctx context.Context) (*Handle, bool) {
	p.mu.Lock()
	if p.state != PagerIdle {
		p.mu.Unlock()
		return nil, false
	}
	p.state = PagerLoading
	// Порядок блокировок: p.mu, затем mu контроллера. Commit под mu контроллера p.mu не берёт.
	p.loaded = retain(p.loaded, p.ctrl.Base())
	req := PageRequest{Page: p.page, Offset: len(p.loaded), Limit: p.cfg.Limit}
	if n := len(p.loaded); n > 0 {
		req.Cursor = p.loaded[n-1]
	}
	if p.page == 0 {
		req.Limit = p.cfg.InitialLimit
	}
	p.mu.Unlock()

	h := Run(ctx, p.ctrl, Mutation[T, []T]{
		Name: p.cfg.Name,
		Do: func(ctx context.Context) ([]T, error) {
			return p.load(ctx, req)
		},
		Commit: func(base []T, page []T) []T {
			if len(page) == 0 {
				return base
			}
			return Reduce(base, AppendPage(page))
		},
		OnCommit: func(page []T) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if len(page) == 0 {
				p.state = PagerExhausted
				return
			}
			p.state = PagerIdle
			p.page++
			p.loaded = appendIDs(p.loaded, page)
		},
		OnRevert: func(*domain.OperationFailed) {
			p.mu.Lock()
			p.state = PagerIdle
			p.mu.Unlock()
		},
	})
	return h, true
}

// retain оставляет id, которые всё ещё есть в базе, сохраняя порядок.
func retain[T Record](ids []string, base []T) []string {
	present := make(map[string]struct{}, len(base))
	for _, rec := range base {
		present[rec.RecordID()] = struct{}{}
	}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func appendIDs[T Record](ids []string, page []T) []string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, rec := range page {
		id := rec.RecordID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
