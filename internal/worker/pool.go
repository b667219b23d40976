package worker

import (
	"context"
	"sync"
)

// Job is one unit of fan-out work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a Job
type Result interface {
	GetError() error
}

type task struct {
	seq int
	job Job
}

// Pool runs jobs on a fixed number of workers and returns results in submission order.
// Call Start before Submit, and Wait (or Shutdown) exactly once when done submitting.
type Pool struct {
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan task
	wg      sync.WaitGroup

	// gate keeps Submit from sending on a closed queue
	gate   sync.RWMutex
	closed bool

	mu      sync.Mutex
	next    int
	results map[int]Result
}

// NewPool creates a pool whose jobs stop when ctx is done
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan task, workers),
		results: make(map[int]Result),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			r := t.job.Execute(p.ctx)

			p.mu.Lock()
			p.results[t.seq] = r
			p.mu.Unlock()
		}
	}
}

// Submit queues a job; it returns false once the pool is closed or cancelled
func (p *Pool) Submit(job Job) bool {
	p.gate.RLock()
	defer p.gate.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	seq := p.next
	p.next++
	p.mu.Unlock()

	select {
	case p.queue <- task{seq: seq, job: job}:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Wait stops accepting jobs, waits for the queued ones and returns their results
// in submission order. Jobs dropped by cancellation have no result.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Result, 0, len(p.results))
	for seq := 0; seq < p.next; seq++ {
		if r, ok := p.results[seq]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Shutdown cancels queued jobs and waits for running ones to return
func (p *Pool) Shutdown() {
	p.cancel()
	p.close()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.gate.Lock()
	defer p.gate.Unlock()

	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}
