package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// BatchRunner fans a document list across a bounded worker pool. Results come
// back in input order regardless of completion order.
type BatchRunner struct {
	proc        *Processor
	concurrency int64
	logger      *slog.Logger
}

func NewBatchRunner(proc *Processor, concurrency int, logger *slog.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{proc: proc, concurrency: int64(concurrency), logger: logger}
}

// ProcessBatch processes every document and always returns one result per
// input, at the input's index. One document's failure never affects its
// neighbors; only an environment failure (or cancellation) stops the run, and
// even then the slice is complete, with unstarted documents left Pending.
func (b *BatchRunner) ProcessBatch(ctx context.Context, docs []entity.Document) ([]entity.ProcessedDocument, error) {
	results := make([]entity.ProcessedDocument, len(docs))
	sem := semaphore.NewWeighted(b.concurrency)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	start := time.Now()
	b.logger.Info("batch.start", "documents", len(docs), "concurrency", b.concurrency)

	for i, doc := range docs {
		if err := sem.Acquire(runCtx, 1); err != nil {
			// Run is stopping; mark this and all remaining documents skipped.
			for j := i; j < len(docs); j++ {
				results[j] = skipped(docs[j], runCtx.Err())
			}
			break
		}
		wg.Add(1)
		go func(idx int, d entity.Document) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := b.proc.Process(runCtx, d)
			results[idx] = res
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}(i, doc)
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	summary := entity.Summarize(results)
	b.logger.Info("batch.done",
		"documents", summary.Total,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", firstErr,
	)
	return results, firstErr
}

// skipped builds the Pending placeholder for a document the run never started.
func skipped(doc entity.Document, cause error) entity.ProcessedDocument {
	reason := "run stopped before this document started"
	if cause != nil {
		reason = "run stopped before this document started: " + cause.Error()
	}
	now := time.Now().UTC()
	return entity.ProcessedDocument{
		Document:      doc,
		Status:        constants.StatusPending,
		FailureKind:   string(common.FailureEnvironment),
		FailureReason: reason,
		StartedAt:     now,
		FinishedAt:    now,
	}
}
