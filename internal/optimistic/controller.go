package optimistic

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticket - идентификатор ожидающего intent'а внутри контроллера.
type Ticket uint64

type pendingIntent[T Record] struct {
	ticket Ticket
	intent Intent[T]
}

// Observer получает события жизненного цикла операций (метрики).
type Observer interface {
	OperationStarted(op string)
	OperationSettled(op string, outcome Outcome, elapsed time.Duration)
}

// Outcome - итог операции.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeReverted  Outcome = "reverted"
)

type nopObserver struct{}

func (nopObserver) OperationStarted(string)                         {}
func (nopObserver) OperationSettled(string, Outcome, time.Duration) {}

// Option настраивает контроллер.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	notifier Notifier
	observer Observer
}

func WithLogger(l *zap.Logger) Option  { return func(o *options) { o.logger = l } }
func WithNotifier(n Notifier) Option   { return func(o *options) { o.notifier = n } }
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// Controller владеет базовой коллекцией одного экрана и его ожидающими intent'ами.
// Базовая коллекция меняется только подтверждёнными результатами операций.
type Controller[T Record] struct {
	mu       sync.Mutex
	base     []T
	pending  []pendingIntent[T]
	seq      Ticket
	inflight int
	wg       sync.WaitGroup

	failures []*Failure
	failSeq  int

	logger   *zap.Logger
	notifier Notifier
	observer Observer
}

// New создаёт контроллер с начальной базовой коллекцией.
func New[T Record](base []T, opts ...Option) *Controller[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return &Controller[T]{
		base:     clone(base),
		logger:   o.logger,
		notifier: o.notifier,
		observer: o.observer,
	}
}

// Snapshot возвращает tentative overlay: базу с применёнными ожидающими intent'ами.
func (c *Controller[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.base, c.intentsLocked()...)
}

// Base возвращает копию подтверждённой коллекции.
func (c *Controller[T]) Base() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.base)
}

// Find ищет запись в overlay по id.
func (c *Controller[T]) Find(id string) (T, bool) {
	for _, rec := range c.Snapshot() {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Pending сообщает, есть ли операции в полёте.
func (c *Controller[T]) Pending() bool {
	return c.InFlight() > 0
}

// InFlight - число незавершённых операций.
func (c *Controller[T]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// PendingIntents - число intent'ов, ещё не снятых с overlay.
func (c *Controller[T]) PendingIntents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Apply добавляет intent в набор ожидающих.
func (c *Controller[T]) Apply(in Intent[T]) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.pending = append(c.pending, pendingIntent[T]{ticket: c.seq, intent: in})
	return c.seq
}

// Settle снимает intent с overlay. Если commit не nil, он применяется к базе
// в той же критической секции, так что наблюдатель не увидит промежуточного состояния.
func (c *Controller[T]) Settle(t Ticket, commit func(base []T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked(t, commit)
}

// Commit применяет изменение к базе без intent'а (например, загрузка первой страницы).
func (c *Controller[T]) Commit(fn func(base []T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = fn(clone(c.base))
}

// Wait блокируется до завершения всех операций.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

func (c *Controller[T]) settleLocked(t Ticket, commit func(base []T) []T) {
	for i, p := range c.pending {
		if p.ticket == t {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			break
		}
	}
	if commit != nil {
		c.base = commit(clone(c.base))
	}
}

func (c *Controller[T]) intentsLocked() []Intent[T] {
	intents := make([]Intent[T], len(c.pending))
	for i, p := range c.pending {
		intents[i] = p.intent
	}
	return intents
}

func (c *Controller[T]) begin(op string) {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
	c.wg.Add(1)
	c.observer.OperationStarted(op)
}

func (c *Controller[T]) end(op string, outcome Outcome, started time.Time) {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
	c.observer.OperationSettled(op, outcome, time.Since(started))
	c.wg.Done()
}
