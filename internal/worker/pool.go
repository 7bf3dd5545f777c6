// Package worker implements a bounded worker pool for hashing files concurrently.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tidy-go/internal/tidy"
)

// HashFunc computes a digest for the file at path.
type HashFunc func(path string) (string, error)

// Job is one file to hash. Index lets the consumer restore input order.
type Job struct {
	Index int
	Path  string
}

// Result holds the outcome of one job.
type Result struct {
	Index int
	Path  string
	Hash  string
	Err   error
}

// Pool runs a fixed set of goroutines that read Jobs and emit Results.
type Pool struct {
	workers int
	hash    HashFunc
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  tidy.Logger
}

// NewPool creates a pool with the given number of workers (at least one).
// Call Start to launch the goroutines.
func NewPool(ctx context.Context, workers int, hash HashFunc, logger tidy.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		hash:    hash,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit enqueues a job, blocking while the buffer is full.
// Returns false once the pool context is cancelled.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Results returns the channel the consumer must drain until it is closed.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Cancel stops workers after their current job.
func (p *Pool) Cancel() {
	p.cancel()
}

// Shutdown closes the jobs channel, waits for the workers, then closes Results.
// Call it once, from the goroutine that submits.
func (p *Pool) Shutdown() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(id, job)
		case <-p.ctx.Done():
			p.logger.Debug("worker cancelled", "worker_id", id)
			return
		}
	}
}

func (p *Pool) process(workerID int, job Job) {
	if err := p.ctx.Err(); err != nil {
		p.results <- Result{Index: job.Index, Path: job.Path, Err: fmt.Errorf("job cancelled before processing: %w", err)}
		return
	}

	start := time.Now()
	hash, err := p.hash(job.Path)
	if err != nil {
		p.logger.Debug("hashing failed",
			"worker_id", workerID,
			"path", job.Path,
			"error", err,
		)
		p.results <- Result{Index: job.Index, Path: job.Path, Err: err}
		return
	}

	p.logger.Debug("hashing completed",
		"worker_id", workerID,
		"path", job.Path,
		"latency", time.Since(start),
	)
	p.results <- Result{Index: job.Index, Path: job.Path, Hash: hash}
}
