package engine

import (
	"context"
	"errors"
	"time"

	"github.com/stocksense/stocksense-go/core"
)

// RetryPolicy bounds how agent evaluation failures are retried. Only
// AgentError.ReasoningFailed is retryable; InsufficientData is final because
// the inputs will not change within the run.
type RetryPolicy struct {
	// MaxAttempts counts the first try. 2 means one retry.
	MaxAttempts int

	// Backoff is the pause between attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy retries reasoning failures exactly once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 200 * time.Millisecond}
}

// retryable reports whether the policy applies to this error.
func retryable(err error) bool {
	var ae *core.AgentError
	return errors.As(err, &ae) && ae.Kind == core.AgentReasoningFailed
}

// do runs fn under the policy, re-invoking with identical inputs on
// retryable failures until attempts or the context run out.
func (p RetryPolicy) do(ctx context.Context, fn func() (core.Finding, error)) (core.Finding, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var finding core.Finding
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		finding, err = fn()
		if err == nil || !retryable(err) {
			return finding, err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return core.Finding{}, err
		}
	}
	return core.Finding{}, err
}
