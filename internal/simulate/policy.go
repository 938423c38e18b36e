// Package simulate имитирует сетевые вызовы: задержку и случайные сбои.
package simulate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
)

// Policy - параметры имитации одной операции.
type Policy struct {
	FailureRate float64       `yaml:"failureRate"`
	MinDelay    time.Duration `yaml:"minDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
	Message     string        `yaml:"message"`
}

// Never и Always удобны в тестах.
var (
	Never  = Policy{FailureRate: 0}
	Always = Policy{FailureRate: 1, Message: "simulated failure"}
)

// Fixed - фиксированная задержка с вероятностью отказа p.
func Fixed(delay time.Duration, p float64, message string) Policy {
	return Policy{FailureRate: p, MinDelay: delay, MaxDelay: delay, Message: message}
}

// Injector применяет политики. Один генератор на инжектор, чтобы
// последовательность исходов воспроизводилась при одинаковом seed.
type Injector struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInjector создаёт инжектор с заданным seed.
func NewInjector(seed uint64) *Injector {
	return &Injector{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sleep: sleepCtx,
	}
}

// WithoutDelay отключает ожидание (задержки политик игнорируются).
func (i *Injector) WithoutDelay() *Injector {
	i.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return i
}

// Delay выбирает задержку из [MinDelay, MaxDelay].
func (i *Injector) Delay(p Policy) time.Duration {
	if p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return p.MinDelay + time.Duration(i.rng.Int64N(int64(p.MaxDelay-p.MinDelay)+1))
}

// Fails решает, завершится ли очередной вызов ошибкой.
func (i *Injector) Fails(p Policy) bool {
	switch {
	case p.FailureRate <= 0:
		return false
	case p.FailureRate >= 1:
		return true
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rng.Float64() < p.FailureRate
}

// Intn - равномерное число из [0, n) из того же генератора.
func (i *Injector) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rng.IntN(n)
}

// Do ждёт задержку политики и возвращает OperationFailed с вероятностью FailureRate.
// Ошибку ctx возвращает как есть.
func (i *Injector) Do(ctx context.Context, op string, p Policy) error {
	if err := i.sleep(ctx, i.Delay(p)); err != nil {
		return err
	}
	if !i.Fails(p) {
		return nil
	}
	msg := p.Message
	if msg == "" {
		msg = op + " failed"
	}
	return &domain.OperationFailed{Op: op, Message: msg, Retryable: true}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
