package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/pipeline"
)

// Job is one queued document.
type Job struct {
	Document entity.Document
}

// Sink receives each terminal result. Called from worker goroutines; the
// implementation must be safe for concurrent use.
type Sink func(ctx context.Context, doc entity.ProcessedDocument)

// ProcessorQueue feeds documents from the watcher into the pipeline with a
// fixed worker pool. Used by the daemon; batch runs use the pipeline's own
// runner instead.
type ProcessorQueue struct {
	proc    *pipeline.Processor
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc *pipeline.Processor, sink Sink, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker_started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.proc.Process(ctx, job.Document)
					if err != nil {
						q.logger.Error("queue.document_failed",
							"worker_id", workerID,
							"doc_id", job.Document.ID.String(),
							"file", job.Document.FileName(),
							"error", err,
						)
					}
					if q.sink != nil {
						q.sink(ctx, res)
					}
					cancel()
				}

				q.logger.Info("queue.worker_stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue adds a document, blocking for backpressure when the buffer is full.
// Enqueues after Shutdown are dropped.
func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue_after_shutdown", "file", job.Document.FileName())
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueued", "doc_id", job.Document.ID.String(), "file", job.Document.FileName())
	default:
		q.logger.Warn("queue.full_backpressure", "file", job.Document.FileName())
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and drains in-flight work, bounded by ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
