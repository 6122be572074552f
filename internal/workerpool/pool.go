// Package workerpool runs CPU bound export jobs on a fixed set of workers fed
// through a bounded queue. Submissions beyond the queue capacity are rejected
// rather than buffered.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrQueueFull = errors.New("workerpool: job queue full")
	ErrStopped   = errors.New("workerpool: pool stopped")
)

// Job produces the bytes of one export.
type Job func(ctx context.Context) ([]byte, error)

type result struct {
	data []byte
	err  error
}

type task struct {
	ctx    context.Context
	name   string
	run    Job
	result chan result
}

type Worker struct {
	ID         int
	WorkerPool chan chan task
	JobChannel chan task
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan task, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan task),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			// announce readiness
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case t := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "job", t.name)
				t.result <- w.run(t)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

func (w *Worker) run(t task) (res result) {
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("export job panicked", "worker_id", w.ID, "job", t.name, "panic", rec)
			res = result{err: errors.New("workerpool: job panicked")}
		}
	}()
	if err := t.ctx.Err(); err != nil {
		return result{err: err}
	}
	data, err := t.run(t.ctx)
	return result{data: data, err: err}
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
}

type Pool struct {
	logger *slog.Logger

	jobQueue   chan task
	workerPool chan chan task
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	// guards enqueueing against Shutdown
	mu      sync.RWMutex
	stopped bool
}

func New(config Config, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 16
	}

	p := &Pool{
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan task, jobQueueSize),
		workerPool: make(chan chan task, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.logger).Start(p.ctx, &p.wg)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("export worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- t:
				case <-p.ctx.Done():
					t.result <- result{err: ErrStopped}
					p.drain()
					return
				}
			case <-p.ctx.Done():
				t.result <- result{err: ErrStopped}
				p.drain()
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("export dispatcher shutting down")
			p.drain()
			return
		}
	}
}

// drain answers every job still queued with ErrStopped.
func (p *Pool) drain() {
	for {
		select {
		case t := <-p.jobQueue:
			t.result <- result{err: ErrStopped}
		default:
			return
		}
	}
}

// Submit queues job and waits for its output. It returns ErrQueueFull
// immediately when the queue is at capacity.
func (p *Pool) Submit(ctx context.Context, name string, job Job) ([]byte, error) {
	t := task{
		ctx:    ctx,
		name:   name,
		run:    job,
		result: make(chan result, 1),
	}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return nil, ErrStopped
	}
	select {
	case p.jobQueue <- t:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		p.logger.Warn("export queue full, rejecting job",
			"job", name,
			"queue_capacity", cap(p.jobQueue))
		return nil, ErrQueueFull
	}

	select {
	case res := <-t.result:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		// a worker may have finished the job just before shutdown
		select {
		case res := <-t.result:
			return res.data, res.err
		default:
			return nil, ErrStopped
		}
	}
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down export worker pool")
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
	p.logger.Info("export worker pool shutdown complete")
}
