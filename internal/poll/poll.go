// Package poll provides a poll-until-done combinator with a fixed interval
// and an attempt ceiling. It is the single completion-detection primitive for
// waiting on the external generation service.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrCeilingExceeded is returned when the attempt ceiling is exhausted
// without the check function reporting done.
var ErrCeilingExceeded = errors.New("polling attempt ceiling exceeded")

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// CheckFunc performs one poll attempt. Returning done=true stops polling.
// A non-nil error with done=false is treated as a transient failure: the
// attempt is counted and polling continues after the interval. A non-nil
// error with done=true aborts immediately with that error.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until invokes check up to cfg.MaxAttempts times, sleeping cfg.Interval
// between attempts. It returns nil once check reports done, the check's own
// error if the check aborts, ErrCeilingExceeded if attempts run out, or the
// context's error if it is cancelled mid-wait.
func Until(ctx context.Context, cfg Config, check CheckFunc) error {
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		done, err := check(ctx)
		if done {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}

	return ErrCeilingExceeded
}
