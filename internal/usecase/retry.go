package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/productsheet/backend/internal/domain"
)

// RetryPolicy is the retry budget for one segment analysis.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, at least one.
	MaxRetries int
	Delay      time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

type attemptOutcome int

const (
	attemptSucceeded attemptOutcome = iota
	attemptRetryable
	attemptFatal
)

func (o attemptOutcome) String() string {
	switch o {
	case attemptSucceeded:
		return "success"
	case attemptRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// attemptResult is what one model call produced.
type attemptResult struct {
	outcome  attemptOutcome
	analysis *domain.SegmentAnalysis
	err      error
}

// classifyModelError sorts a client error into retryable or fatal. Caller
// cancellation is always fatal.
func classifyModelError(err error) attemptResult {
	switch {
	case errors.Is(err, context.Canceled):
		return attemptResult{outcome: attemptFatal, err: err}
	case errors.Is(err, domain.ErrAnalysisTimeout), errors.Is(err, context.DeadlineExceeded):
		return attemptResult{outcome: attemptFatal, err: domain.ErrAnalysisTimeout}
	case errors.Is(err, domain.ErrModelConnection):
		return attemptResult{outcome: attemptRetryable, err: err}
	}

	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) && statusErr.Temporary() {
		return attemptResult{outcome: attemptRetryable, err: err}
	}
	return attemptResult{outcome: attemptFatal, err: err}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
