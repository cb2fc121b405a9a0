package engine

import (
	"context"
	"sync"
)

// job is the unit of work dispatched to a worker.
type job[T, R any] struct {
	ctx     context.Context
	payload T
	reply   chan R // buffered(1); the worker never blocks on it
}

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool[T, R any] struct {
	queue   chan job[T, R]
	process func(ctx context.Context, t T) R
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity size.
func newWorkerPool[T, R any](ctx context.Context, n, size int, fn func(context.Context, T) R) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan job[T, R], size),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			if j.ctx.Err() != nil {
				continue // caller already gave up
			}
			j.reply <- p.process(j.ctx, j.payload)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues t without blocking and returns the channel its result
// arrives on. ok is false when the queue is full or the pool is drained.
func (p *workerPool[T, R]) Submit(ctx context.Context, t T) (result <-chan R, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, false
	}
	reply := make(chan R, 1)
	select {
	case p.queue <- job[T, R]{ctx: ctx, payload: t, reply: reply}:
		return reply, true
	default:
		return nil, false
	}
}

// Drain stops accepting work, lets queued jobs finish and waits for all workers.
func (p *workerPool[T, R]) Drain() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}
