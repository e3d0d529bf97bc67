// Package workers provides a worker pool implementation for concurrent
// operations in nexasec. It supports job queuing, rate limiting,
// graceful shutdown, and integrates with the structured logging system.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
	Retries  int
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the maximum number of jobs that can be queued.
	QueueSize int
	// MaxRetries is the maximum number of retries for failed jobs.
	MaxRetries int
	// RetryDelay is the delay between retries.
	RetryDelay time.Duration
	// ShutdownTimeout is the maximum time to wait for workers to finish.
	ShutdownTimeout time.Duration
	// RateLimit is the maximum number of jobs per second (0 = no limit).
	RateLimit int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:            10,
		QueueSize:       256,
		MaxRetries:      0,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
		RateLimit:       0,
	}
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config          Config
	jobs            chan Job
	results         chan Result
	externalResults chan Result
	workers         []*worker
	wg              sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc
	shutdown        chan struct{}
	done            chan struct{}
	rateLimiter     *time.Ticker
	startOnce       sync.Once
	closeOnce       sync.Once
	shutdown32      int32 // atomic shutdown flag
}

// worker represents a single worker goroutine.
type worker struct {
	id   int
	pool *Pool
}

// New creates a new worker pool with the given configuration.
func New(config Config) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:          config,
		jobs:            make(chan Job, config.QueueSize),
		results:         make(chan Result, config.QueueSize),
		externalResults: make(chan Result, config.QueueSize),
		workers:         make([]*worker, config.Size),
		ctx:             ctx,
		cancel:          cancel,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	if config.RateLimit > 0 {
		interval := time.Second / time.Duration(config.RateLimit)
		pool.rateLimiter = time.NewTicker(interval)
	}

	for i := 0; i < config.Size; i++ {
		pool.workers[i] = &worker{
			id:   i,
			pool: pool,
		}
	}

	return pool
}

// Start begins the worker pool operations.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		logging.Info("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize,
			"rate_limit", p.config.RateLimit)

		for _, w := range p.workers {
			p.wg.Add(1)
			go w.run()
		}

		go p.processResults()
	})
}

// Submit adds a job to the worker pool queue.
func (p *Pool) Submit(job Job) error {
	if atomic.LoadInt32(&p.shutdown32) == 1 {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		logging.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Results returns a channel for receiving job results.
func (p *Pool) Results() <-chan Result {
	return p.externalResults
}

// Shutdown gracefully shuts down the worker pool.
func (p *Pool) Shutdown() error {
	if !atomic.CompareAndSwapInt32(&p.shutdown32, 0, 1) {
		// Already shut down
		return nil
	}

	logging.Info("Shutting down worker pool")

	// Cancel context first to prevent new submissions
	p.cancel()

	close(p.shutdown)
	close(p.jobs)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Worker pool shutdown completed")
	case <-time.After(p.config.ShutdownTimeout):
		logging.Warn("Worker pool shutdown timeout, forcing termination")
		<-done
	}

	// Give processResults a moment to exit cleanly
	time.Sleep(10 * time.Millisecond)

	close(p.results)
	close(p.externalResults)

	if p.rateLimiter != nil {
		p.rateLimiter.Stop()
	}

	return nil
}

// Wait waits for all workers to complete and the pool to shut down.
func (p *Pool) Wait() {
	<-p.done
}

// worker.run executes the worker loop.
func (w *worker) run() {
	defer w.pool.wg.Done()

	logging.Debug("Worker started", "worker_id", w.id)
	defer logging.Debug("Worker stopped", "worker_id", w.id)

	for {
		select {
		case job, ok := <-w.pool.jobs:
			if !ok {
				return
			}
			w.executeJob(job)

		case <-w.pool.shutdown:
			return

		case <-w.pool.ctx.Done():
			return
		}
	}
}

// executeJob executes a single job with retry logic.
func (w *worker) executeJob(job Job) {
	// Apply rate limiting if configured
	if w.pool.rateLimiter != nil {
		select {
		case <-w.pool.rateLimiter.C:
		case <-w.pool.ctx.Done():
			return
		}
	}

	var lastErr error
	var retries int

	for attempt := 0; attempt <= w.pool.config.MaxRetries; attempt++ {
		start := time.Now()

		jobCtx, cancel := context.WithCancel(w.pool.ctx)
		err := job.Execute(jobCtx)
		cancel()

		duration := time.Since(start)

		if err == nil {
			w.pool.results <- Result{
				JobID:    job.ID(),
				JobType:  job.Type(),
				Duration: duration,
				Retries:  retries,
			}

			logging.Debug("Job completed successfully",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"duration", duration,
				"worker_id", w.id,
				"retries", retries)
			return
		}

		lastErr = err
		retries = attempt

		if attempt < w.pool.config.MaxRetries {
			logging.Debug("Job failed, retrying",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"attempt", attempt+1,
				"max_retries", w.pool.config.MaxRetries,
				"error", err)

			select {
			case <-time.After(w.pool.config.RetryDelay):
			case <-w.pool.ctx.Done():
				return
			}
		}
	}

	w.pool.results <- Result{
		JobID:   job.ID(),
		JobType: job.Type(),
		Error:   lastErr,
		Retries: retries,
	}

	logging.Error("Job failed after retries",
		"job_id", job.ID(),
		"job_type", job.Type(),
		"retries", retries,
		"error", lastErr,
		"worker_id", w.id)
}

// processResults processes job results from workers.
func (p *Pool) processResults() {
	defer p.closeOnce.Do(func() {
		close(p.done)
	})

	for {
		select {
		case result, ok := <-p.results:
			if !ok {
				return
			}

			// Fan out result to external consumers
			select {
			case p.externalResults <- result:
			case <-p.ctx.Done():
				return
			default:
				// External consumer not reading, drop on the floor
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// EnrichJob implements Job for per-device enrichment during a full
// discovery cycle.
type EnrichJob struct {
	id       string
	ip       string
	executor func(ctx context.Context, ip string) error
}

// NewEnrichJob creates a new enrichment job.
func NewEnrichJob(id, ip string, executor func(ctx context.Context, ip string) error) *EnrichJob {
	return &EnrichJob{
		id:       id,
		ip:       ip,
		executor: executor,
	}
}

// Execute implements the Job interface.
func (j *EnrichJob) Execute(ctx context.Context) error {
	return j.executor(ctx, j.ip)
}

// ID implements the Job interface.
func (j *EnrichJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *EnrichJob) Type() string {
	return "enrich"
}

// LivenessJob implements Job for single-host reachability checks in the
// quick-check loop.
type LivenessJob struct {
	id       string
	ip       string
	executor func(ctx context.Context, ip string) error
}

// NewLivenessJob creates a new liveness check job.
func NewLivenessJob(id, ip string, executor func(ctx context.Context, ip string) error) *LivenessJob {
	return &LivenessJob{
		id:       id,
		ip:       ip,
		executor: executor,
	}
}

// Execute implements the Job interface.
func (j *LivenessJob) Execute(ctx context.Context) error {
	return j.executor(ctx, j.ip)
}

// ID implements the Job interface.
func (j *LivenessJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *LivenessJob) Type() string {
	return "liveness"
}
