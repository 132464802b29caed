package eventsourcing

import (
	"context"
	"errors"
	"time"
)

// ErrConcurrentModification is returned by an event store's Append when the
// aggregate's expected next sequence was already taken by a racing writer
// (spec.md §5, "optimistic on the event stream").
var ErrConcurrentModification = errors.New("eventsourcing: concurrent modification")

// DefaultRetries is the default bound used by RetryOnConcurrentModification
// (spec.md §5: "default ~5").
const DefaultRetries = 5

// PaymentAllocationRetries is the higher bound used for payment-allocation
// callers, which contend more heavily with concurrently-recorded accruals
// (spec.md §5: "15 for payment allocation").
const PaymentAllocationRetries = 15

// RetryOnConcurrentModification invokes fn up to maxAttempts times,
// reloading-and-retrying whenever fn returns ErrConcurrentModification. Any
// other error, or a nil error, stops the loop immediately. Callers are
// expected to reload the aggregate from events inside fn before re-running
// the transition — this helper only bounds the retry count and respects
// context cancellation between attempts.
func RetryOnConcurrentModification(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetries
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrConcurrentModification) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return lastErr
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * 10 * time.Millisecond
	if d > 200*time.Millisecond {
		return 200 * time.Millisecond
	}
	return d
}
