// Package jobs runs fire-and-forget background work on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrFull is returned by Submit when the buffer has no room.
	ErrFull = errors.New("jobs: queue full")
	// ErrClosed is returned by Submit after Shutdown or before Start.
	ErrClosed = errors.New("jobs: queue not accepting work")
)

// Task carries one payload through the pool.
type Task[T any] struct {
	ID       string
	Kind     string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// HandlerFunc processes a task. A non-nil error schedules a retry.
type HandlerFunc[T any] func(context.Context, Task[T]) error

// Config tunes a Pool. Zero values pick small defaults.
type Config[T any] struct {
	Workers    int
	Buffer     int
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration
	// OnGiveUp sees tasks whose final attempt failed.
	OnGiveUp func(Task[T], error)
	Logger   *zap.Logger
}

// Pool is an in-memory queue drained by a fixed set of goroutines.
type Pool[T any] struct {
	name    string
	handle  HandlerFunc[T]
	cfg     Config[T]
	tasks   chan Task[T]
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewPool builds a stopped pool.
func NewPool[T any](name string, handle HandlerFunc[T], cfg Config[T]) *Pool[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 16
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = 30 * cfg.Backoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool[T]{
		name:   name,
		handle: handle,
		cfg:    cfg,
		tasks:  make(chan Task[T], cfg.Buffer),
		logger: logger.With(zap.String("queue", name)),
	}
}

// Start launches the workers. Cancelling ctx does not stop them; use Shutdown.
func (p *Pool[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	p.started = true
	p.logger.Info("queue started", zap.Int("workers", p.cfg.Workers))
}

// Submit queues a task without blocking.
func (p *Pool[T]) Submit(task Task[T]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.closed {
		return ErrClosed
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrFull
	}
}

// Len reports how many tasks wait in the buffer.
func (p *Pool[T]) Len() int {
	return len(p.tasks)
}

// Shutdown stops intake and waits for buffered tasks to finish. When ctx
// expires first, in-flight handlers are cancelled and the rest are dropped.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.closed {
		p.closed = true
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("queue drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("queue %s: %w", p.name, ctx.Err())
	}
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.ctx.Err() != nil {
			continue
		}
		p.run(task)
	}
}

func (p *Pool[T]) run(task Task[T]) {
	delay := p.cfg.Backoff
	for {
		task.Attempt++
		err := p.handle(p.ctx, task)
		if err == nil {
			return
		}
		if task.Attempt > p.cfg.Retries || p.ctx.Err() != nil {
			p.logger.Error("task failed", zap.String("task_id", task.ID), zap.String("kind", task.Kind),
				zap.Int("attempts", task.Attempt), zap.Error(err))
			if p.cfg.OnGiveUp != nil {
				p.cfg.OnGiveUp(task, err)
			}
			return
		}
		p.logger.Warn("task failed, retrying", zap.String("task_id", task.ID), zap.String("kind", task.Kind),
			zap.Int("attempt", task.Attempt), zap.Duration("backoff", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-p.ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		delay *= 2
		if delay > p.cfg.MaxBackoff {
			delay = p.cfg.MaxBackoff
		}
	}
}
