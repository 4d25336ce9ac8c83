package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voxlabs/interviewd/pkg/Logger"
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool closed")
)

// Processor is what a pool worker runs per job. The production
// implementation is *Pipeline; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, job Job, results chan<- Result)
}

// Pool runs N long-lived workers over a bounded job queue. Workers talk to
// the rest of the system only through the job and result channels. A panic
// inside a job is contained: it becomes an error Result and the worker is
// respawned, so one bad job never takes the pool down.
type Pool struct {
	logger  *Logger.Logger
	proc    Processor
	workers int

	jobs    chan Job
	results chan Result
	quit    chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workers, jobQueueSize, resultQueueSize int, proc Processor, logger *Logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		logger:  logger,
		proc:    proc,
		workers: workers,
		jobs:    make(chan Job, jobQueueSize),
		results: make(chan Result, resultQueueSize),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. ctx cancellation stops them after their
// current job.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	defer func() {
		if r := recover(); r != nil {
			// The per-job recover below should catch everything; this is
			// the respawn path for a panic outside it.
			p.logger.Errorf("worker %d died: %v, respawning", id, r)
			go p.runWorker(ctx, id)
			return
		}
		p.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.runJob(ctx, id, job)
		}
	}
}

func (p *Pool) runJob(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("worker %d panic on session %s: %v", id, job.SessionID, r)
			p.post(errorResult(job, fmt.Sprintf("worker panic: %v", r)))
		}
	}()
	started := time.Now()
	p.proc.Process(ctx, job, p.results)
	p.logger.Debugf("worker %d finished job for session %s in %s", id, job.SessionID, time.Since(started))
}

func (p *Pool) post(res Result) {
	select {
	case p.results <- res:
	case <-p.quit:
	}
}

// Submit enqueues a job without blocking. A full queue is reported to the
// caller rather than stalling the gateway.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Results is the channel the drain routine consumes. Closed after Shutdown
// completes cleanly.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Shutdown stops accepting jobs, lets in-flight work finish, and closes the
// result channel. On ctx expiry workers blocked mid-job are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(p.quit)
		close(p.results)
		return nil
	case <-ctx.Done():
		close(p.quit)
		return ctx.Err()
	}
}
