// Package batch runs per-user collections on a bounded pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"twscrape/pkg/logger"
	"twscrape/pkg/storage"
)

// ErrPoolStopped is returned by Submit once the pool's context is done
var ErrPoolStopped = errors.New("worker pool is shutting down")

// Job is one user to collect
type Job struct {
	UserID string
	Kind   storage.Kind

	seq int
}

// Result represents the outcome of a job
type Result struct {
	Job      Job
	Manifest *storage.Manifest
	Error    error
	Duration time.Duration
}

// Success reports whether the job completed without error
func (r Result) Success() bool {
	return r.Error == nil
}

// Handler collects and stores one job
type Handler func(ctx context.Context, job Job) (*storage.Manifest, error)

// WorkerPool manages concurrent collection workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	handler     Handler
	logger      logger.Logger
}

// NewWorkerPool creates a pool whose workers stop when ctx is cancelled
func NewWorkerPool(ctx context.Context, numWorkers int, handler Handler, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		handler:     handler,
		logger:      log.WithField("component", "batch"),
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for the workers and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	if wp.ctx.Err() != nil {
		return ErrPoolStopped
	}

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return ErrPoolStopped
	}
}

// Results returns the channel of finished jobs
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			return
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	log := wp.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"user_id":   job.UserID,
		"kind":      job.Kind,
	})
	log.Debug("worker processing job")

	manifest, err := wp.handler(wp.ctx, job)
	result := Result{
		Job:      job,
		Manifest: manifest,
		Error:    err,
		Duration: time.Since(start),
	}

	if err != nil {
		log.WithError(err).Error("job failed")
		return result
	}

	log.DebugWithFields("job completed", map[string]interface{}{
		"duration": result.Duration,
	})
	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}

// Run processes jobs with at most workers in flight and returns one result
// per job in submission order. Jobs that never ran carry the context error.
func Run(ctx context.Context, workers int, jobs []Job, handler Handler, log logger.Logger) []Result {
	pool := NewWorkerPool(ctx, workers, handler, log)
	pool.Start()

	results := make([]Result, len(jobs))
	done := make([]bool, len(jobs))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range pool.Results() {
			results[r.Job.seq] = r
			done[r.Job.seq] = true
		}
	}()

	submitted := 0
	for i, job := range jobs {
		job.seq = i
		if err := pool.Submit(job); err != nil {
			break
		}
		submitted++
	}
	pool.logger.DebugWithFields("jobs submitted", map[string]interface{}{
		"workers":   pool.GetActiveWorkers(),
		"submitted": submitted,
		"queued":    pool.GetQueueSize(),
	})
	pool.Stop()
	<-collected

	for i := range results {
		if done[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = ErrPoolStopped
		}
		job := jobs[i]
		job.seq = i
		results[i] = Result{Job: job, Error: fmt.Errorf("user %s not collected: %w", job.UserID, err)}
	}
	return results
}
