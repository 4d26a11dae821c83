package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmercado-dev/merchant-intake/internal/common"
)

// RetryPolicy retries transient stage failures with exponential backoff.
// MaxAttempts counts the first try, so MaxAttempts=3 means up to two retries.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// NewRetryPolicy derives a policy from the pipeline configuration. Transient
// failure kinds (engine unavailable, timeout, connection refused) retry;
// everything else fails fast.
func NewRetryPolicy(cfg common.PipelineConfig) RetryPolicy {
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     backoff,
		Retryable:   common.IsTransient,
	}
}

// Do runs fn until it succeeds, exhausts attempts, or hits a non-retryable
// error. It returns the attempt count actually used alongside the final error.
// Backoff doubles per attempt and respects context cancellation.
func (p RetryPolicy) Do(ctx context.Context, stage string, logger *slog.Logger, fn func(ctx context.Context) error) (int, error) {
	var err error
	backoff := p.Backoff
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt >= p.MaxAttempts || p.Retryable == nil || !p.Retryable(err) {
			return attempt, err
		}
		logger.Warn("pipeline.retry",
			"stage", stage,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"backoff_ms", backoff.Milliseconds(),
			"kind", string(common.KindOf(err)),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return attempt, err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
