package fetcher

import (
	"context"
	"sync"

	"examscraper/pkg/logger"
	"examscraper/pkg/models"
	"examscraper/pkg/ratelimit"
)

// Job is a single download request for the pool
type Job struct {
	Record models.PaperRecord
}

// Result is the terminal outcome of one download job. Exactly one Result is
// produced per submitted Job.
type Result struct {
	Record  models.PaperRecord
	Skipped bool
	Err     error

	// Reason is a short description of Err, empty on success
	Reason string

	// NotStarted is true when the job was cancelled before its download
	// began. Such results carry no progress worth reporting.
	NotStarted bool
}

// WorkerPool downloads documents concurrently with a bounded number of
// workers sharing one rate limiter. Submit feeds jobs in, Results streams
// outcomes out; Stop drains the pool and closes the result channel.
type WorkerPool struct {
	workers  int
	fetcher  *Fetcher
	limiter  ratelimit.Limiter
	jobs     chan Job
	results  chan Result
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   logger.Logger
}

// NewWorkerPool creates a pool with the given number of download workers.
// The limiter may be nil when rate limiting is not wanted.
func NewWorkerPool(workers int, f *Fetcher, limiter ratelimit.Limiter, log logger.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &WorkerPool{
		workers: workers,
		fetcher: f,
		limiter: limiter,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		logger:  log,
	}
}

// Start launches the workers. They exit when the job channel is closed or
// the context is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.DebugWithFields("starting download workers", map[string]interface{}{
		"workers": p.workers,
	})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit queues a download job. It blocks when the queue is full and returns
// false once the context is cancelled.
func (p *WorkerPool) Submit(ctx context.Context, job Job) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Results returns the channel of download outcomes
func (p *WorkerPool) Results() <-chan Result {
	return p.results
}

// Stop closes the job queue, waits for in-flight downloads, and closes the
// result channel. Safe to call more than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		close(p.results)
	})
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.WithField("worker", id)

	for {
		select {
		case <-ctx.Done():
			// Drain remaining jobs so every submitted job gets a result.
			// None of them started, and the results say so.
			for job := range p.jobs {
				p.emit(ctx, Result{Record: job.Record, Err: ctx.Err(), Reason: ctx.Err().Error(), NotStarted: true})
			}
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, log, job)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, log logger.Logger, job Job) {
	if ctx.Err() != nil {
		p.emit(ctx, Result{Record: job.Record, Err: ctx.Err(), Reason: ctx.Err().Error(), NotStarted: true})
		return
	}

	if p.limiter != nil {
		p.limiter.Wait()
	}

	rec, skipped, err := p.fetcher.Fetch(ctx, job.Record)
	result := Result{Record: rec, Skipped: skipped, Err: err}
	if err != nil {
		result.Reason = reasonFor(err)
		log.WarnWithFields("download failed", map[string]interface{}{
			"course": job.Record.CourseCode,
			"year":   job.Record.Year,
			"title":  job.Record.Title,
			"error":  err.Error(),
		})
	}

	p.emit(ctx, result)
}

// emit delivers a result without blocking forever on a cancelled consumer
func (p *WorkerPool) emit(ctx context.Context, r Result) {
	select {
	case p.results <- r:
	case <-ctx.Done():
		select {
		case p.results <- r:
		default:
		}
	}
}
