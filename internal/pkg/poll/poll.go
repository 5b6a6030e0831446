package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when the attempt bound is reached without
// the condition being satisfied.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Fn is one poll iteration. done=true stops the loop with success.
// A non-nil error stops the loop immediately and is returned as-is.
type Fn func(ctx context.Context) (done bool, err error)

// Until runs fn up to maxAttempts times, sleeping interval between
// attempts. The context is checked before every iteration, so a
// cancelled caller stops scheduling further polls; an in-flight fn is
// never interrupted mid-call.
func Until(ctx context.Context, interval time.Duration, maxAttempts int, fn Fn) error {
	if maxAttempts <= 0 {
		return ErrExhausted
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt == maxAttempts-1 {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ErrExhausted
}
