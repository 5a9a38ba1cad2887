// Package bridge dispatches blocking engine calls to a shared multi-worker
// pool so that one I/O-bound call never stalls the caller's other goroutines.
//
// The pool mirrors the shape of a process-wide runtime: one lazily created
// default pool shared by every handle, sized to the number of schedulable
// CPUs. Submitting a call parks only the submitting goroutine on the result
// channel; the workers perform the engine call itself.
//
// There is no cancellation. Once dispatched, a call runs to completion; the
// result channel is buffered so a worker never blocks on a caller that has
// stopped waiting.
package bridge

import (
	"runtime"
	"sync"
)

// Pool is a fixed set of workers executing submitted calls in FIFO order.
type Pool struct {
	jobs chan func()

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool with the given number of workers.
// workers <= 0 means one worker per schedulable CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		// A modest buffer decouples bursty submission from dispatch.
		jobs: make(chan func(), workers*4),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// submit enqueues a job. It blocks when the queue is full, preserving FIFO
// dispatch order for each submitting goroutine.
func (p *Pool) submit(job func()) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	// The send happens under the lock so Close cannot race with an enqueue
	// onto a closed channel. Jobs channel capacity keeps this short.
	p.jobs <- job
	p.mu.Unlock()
	return true
}

// Close stops accepting new work and waits for in-flight calls to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

// Default returns the shared process-wide pool, creating it on first use.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = NewPool(0)
	})
	return defaultPool
}

type result[T any] struct {
	value T
	err   error
}

// Do dispatches f to the pool and waits for its result.
// Only the calling goroutine is parked while f runs on a worker.
func Do[T any](p *Pool, f func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	if !p.submit(func() {
		v, err := f()
		ch <- result[T]{value: v, err: err}
	}) {
		// Pool shut down: run inline rather than fail the call. The
		// contract is that a dispatched call always completes.
		return f()
	}
	r := <-ch
	return r.value, r.err
}

// DoErr dispatches a call that produces only an error.
func DoErr(p *Pool, f func() error) error {
	_, err := Do(p, func() (struct{}, error) {
		return struct{}{}, f()
	})
	return err
}
