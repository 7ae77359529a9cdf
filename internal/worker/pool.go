// Package worker runs analysis jobs on a fixed set of goroutines fed by a
// bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no free slot.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: pool stopped")
)

// Analyzer runs one analysis. *services.Orchestrator satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (domain.AnalysisResult, error)
}

// Result is the outcome of one job.
type Result struct {
	Value domain.AnalysisResult
	Err   error
}

// Job represents one queued analysis.
type Job struct {
	ctx   context.Context
	req   services.AnalyzeRequest
	reply chan Result
}

// Pool manages background workers for analysis jobs.
type Pool struct {
	analyzer Analyzer
	jobs     chan Job
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a worker pool with the given queue size.
func NewPool(analyzer Analyzer, queueSize int, logger *zap.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{analyzer: analyzer, jobs: make(chan Job, queueSize), logger: logger.Named("worker")}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(id, job)
			}
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", workers), zap.Int("queue_size", cap(p.jobs)))
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. The returned channel receives
// exactly one Result.
func (p *Pool) Submit(ctx context.Context, req services.AnalyzeRequest) (<-chan Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrStopped
	}

	job := Job{ctx: ctx, req: req, reply: make(chan Result, 1)}
	select {
	case p.jobs <- job:
		return job.reply, nil
	default:
		p.logger.Warn("dropping job", zap.String("job_id", req.JobID))
		return nil, ErrQueueFull
	}
}

// Pending returns the number of queued jobs.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

func (p *Pool) processJob(worker int, job Job) {
	log := p.logger.With(zap.Int("worker", worker), zap.String("job_id", job.req.JobID))
	if err := job.ctx.Err(); err != nil {
		log.Debug("skipping cancelled job")
		job.reply <- Result{Err: err}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis panicked", zap.Any("panic", r))
			job.reply <- Result{Err: fmt.Errorf("worker: analysis panicked: %v", r)}
		}
	}()

	res, err := p.analyzer.Analyze(job.ctx, job.req)
	job.reply <- Result{Value: res, Err: err}
}
