package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/llm"
	"github.com/jmercado-dev/merchant-intake/internal/pipeline"
	"github.com/jmercado-dev/merchant-intake/internal/validate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string, constants.DocumentType) (entity.ExtractionResult, error) {
	return entity.ExtractionResult{Pages: []string{"Merchant Application"}, Method: "pdf-text", Confidence: 0.9}, nil
}

type stubParser struct{}

func (stubParser) ParseFields(_ context.Context, req llm.ParseRequest) (entity.ParsedRecord, []byte, error) {
	rec := entity.EmptyRecord(req.DocType)
	rec.Fields[constants.FieldLegalBusinessName] = entity.Present("Acme LLC", 0.95)
	rec.Fields[constants.FieldEIN] = entity.Present("12-3456789", 0.95)
	return rec, nil, nil
}

func newQueueProcessor() *pipeline.Processor {
	v := validate.New(common.ValidationConfig{
		MinFieldConfidence: 0.40,
		ReviewBandLow:      0.40,
		ReviewBandHigh:     0.75,
		MaxRequestedAmount: 5_000_000,
	}, testLogger())
	return pipeline.NewProcessor(stubExtractor{}, stubParser{}, v, common.PipelineConfig{
		ExtractTimeout:  time.Second,
		ParseTimeout:    time.Second,
		ValidateTimeout: time.Second,
		RetryBackoff:    time.Millisecond,
	}, testLogger())
}

func TestQueueProcessesAndDrains(t *testing.T) {
	var mu sync.Mutex
	var results []entity.ProcessedDocument
	sink := func(_ context.Context, doc entity.ProcessedDocument) {
		mu.Lock()
		results = append(results, doc)
		mu.Unlock()
	}

	q := NewProcessorQueue(newQueueProcessor(), sink, testLogger(), WithWorkers(2), WithQueueSize(8))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, Job{Document: entity.NewDocument("/in/acme_application.pdf")}))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, constants.StatusComplete, r.Status)
		assert.Equal(t, constants.OutcomeAccepted, r.Outcome)
	}
}

func TestEnqueueAfterShutdownIsDropped(t *testing.T) {
	q := NewProcessorQueue(newQueueProcessor(), nil, testLogger(), WithWorkers(1))
	ctx := context.Background()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	// must not panic on the closed channel
	assert.NoError(t, q.Enqueue(ctx, Job{Document: entity.NewDocument("/in/late_application.pdf")}))

	// repeated shutdowns are no-ops
	q.Shutdown(shutdownCtx)
}
