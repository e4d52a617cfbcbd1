package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("extraction queue is shutting down")

// Job is one uploaded image waiting for extraction.
type Job struct {
	ResultID    string
	Image       []byte
	MIMEType    string
	Filename    string
	SubmittedAt time.Time
	RequestID   string
}

// Handler processes a single job. Errors are logged by the queue; handlers
// are expected to record failures on the result themselves.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ExtractQueue runs extraction jobs on a fixed pool of workers.
type ExtractQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*ExtractQueue)(nil)

type Option func(*ExtractQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds each job. Zero (the default) means no bound.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ExtractQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractQueue(handle Handler, logger *slog.Logger, opts ...Option) *ExtractQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ExtractQueue{
		handle:  handle,
		logger:  logger,
		workers: 2,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ExtractQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		ctx := context.Background()
		cancel := func() {}
		if q.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, q.timeout)
		}
		start := time.Now()
		err := q.run(ctx, job)
		cancel()

		if err != nil {
			q.logger.Error("queue.job.failed",
				"worker_id", workerID,
				"result_id", job.ResultID,
				"req_id", job.RequestID,
				"elapsed_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			continue
		}
		q.logger.Info("queue.job.ok",
			"worker_id", workerID,
			"result_id", job.ResultID,
			"req_id", job.RequestID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
}

func (q *ExtractQueue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue.job.panic", "result_id", job.ResultID, "panic", r)
			err = errors.New("extraction handler panicked")
		}
	}()
	return q.handle(ctx, job)
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ExtractQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "result_id", job.ResultID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "result_id", job.ResultID, "depth", len(q.ch))
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "result_id", job.ResultID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones to drain or
// for ctx to end.
func (q *ExtractQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
