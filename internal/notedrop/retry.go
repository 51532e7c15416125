package notedrop

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is a bounded retry combinator. An attempt that fails with an
// error the predicate rejects aborts the remaining budget immediately; the
// error of the final attempt is what the caller sees.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 2 * time.Second
	}
	return p
}

func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	p = p.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if retryable == nil || !retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		// Context cancellation during the wait stops further attempts; the
		// last push error is still what gets recorded.
		if waitErr := sleepContext(ctx, p.delayFor(attempt, err)); waitErr != nil {
			break
		}
	}
	return lastErr
}

func (p RetryPolicy) delayFor(attempt int, err error) time.Duration {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) && remoteErr.RetryAfter > 0 {
		if remoteErr.RetryAfter > p.MaxDelay {
			return p.MaxDelay
		}
		return remoteErr.RetryAfter
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
