// Package hive runs jobs on a fixed set of worker goroutines, the bees. It is
// used by kissev to deliver deferred events off the caller's goroutine.
package hive

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("hive closed")

type Job func(ctx context.Context) error

// Hive feeds submitted jobs to Bees worker goroutines through a queue of
// length Queue. Bees are started with the first Submit. Bees, Queue and OnErr
// must not be changed after that.
//
// Jobs that submit to their own hive can block forever when all bees do so
// while the queue is full.
type Hive struct {
	Bees  int
	Queue int
	// OnErr receives errors returned by jobs and recovered job panics. It is
	// called from the bee goroutines.
	OnErr func(error)

	mu      sync.Mutex
	jobs    chan task
	quit    chan struct{}
	grp     *errgroup.Group
	closed  bool
	pending sync.WaitGroup
	size    atomic.Int32
}

type task struct {
	ctx context.Context
	do  Job
}

// New returns a hive with size bees. If size < 1 the number of bees is
// runtime.NumCPU() + size but at least 1.
func New(size, queue int) *Hive {
	if size < 1 {
		size = runtime.NumCPU() + size
		if size < 1 {
			size = 1
		}
	}
	if queue < 0 {
		queue = 0
	}
	return &Hive{Bees: size, Queue: queue}
}

// Submit queues job for execution by one of the bees. It blocks while the
// queue is full and returns ctx.Err() if ctx is done before the job was
// queued.
func (h *Hive) Submit(ctx context.Context, job Job) error {
	if job == nil {
		return errors.New("hive: submit nil job")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if h.jobs == nil {
		h.start()
	}
	jobs, quit := h.jobs, h.quit
	h.pending.Add(1)
	h.mu.Unlock()
	defer h.pending.Done()

	select {
	case jobs <- task{ctx: ctx, do: job}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-quit:
		return ErrClosed
	}
}

// Close stops accepting jobs, waits until all queued jobs are done and all bees
// terminated. Close can be called more than once.
func (h *Hive) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	jobs, grp := h.jobs, h.grp
	if h.quit != nil {
		close(h.quit)
	}
	h.mu.Unlock()
	if jobs == nil {
		return nil
	}
	h.pending.Wait()
	close(jobs)
	return grp.Wait()
}

// Active returns the number of running bees.
func (h *Hive) Active() int { return int(h.size.Load()) }

func (h *Hive) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// start must be called with h.mu locked.
func (h *Hive) start() {
	if h.Bees <= 0 {
		h.Bees = 1
	}
	if h.Queue < 0 {
		h.Queue = 0
	}
	h.jobs = make(chan task, h.Queue)
	h.quit = make(chan struct{})
	h.grp = new(errgroup.Group)
	for i := 0; i < h.Bees; i++ {
		h.size.Add(1)
		h.grp.Go(h.bee)
	}
}

func (h *Hive) bee() error {
	defer h.size.Add(-1)
	for t := range h.jobs {
		if err := run(t); err != nil && h.OnErr != nil {
			h.OnErr(err)
		}
	}
	return nil
}

func run(t task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			switch p := p.(type) {
			case error:
				err = fmt.Errorf("hive job panic: %w", p)
			default:
				err = fmt.Errorf("hive job panic: %+v", p)
			}
		}
	}()
	return t.do(t.ctx)
}
