package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op until it succeeds, b gives up, or ctx is done. Only hook
// failures are retried; after one the manager is back at the stage the
// operation began from, so calling it again is safe. Precondition and
// illegal-transition errors are returned immediately.
func Retry(ctx context.Context, op func(context.Context) error, b backoff.BackOff) error {
	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var hookErr *HookError
		if errors.As(err, &hookErr) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}

// NewBackOff returns an exponential policy starting at initial and giving up
// after attempts retries. attempts == 0 retries until ctx is done.
func NewBackOff(initial, max time.Duration, attempts uint64) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.MaxInterval = max
	eb.MaxElapsedTime = 0
	eb.Reset()
	if attempts == 0 {
		return eb
	}
	return backoff.WithMaxRetries(eb, attempts)
}
