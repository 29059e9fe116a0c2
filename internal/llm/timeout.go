package llm

import (
	"context"
	"errors"
	"time"
)

// errDeadline is returned by race when the timer wins.
var errDeadline = errors.New("deadline exceeded")

// race runs fn on its own goroutine and returns whichever settles first: fn,
// the timer, or ctx. fn receives a context that is canceled when race returns
// early, but runtimes that ignore it keep running; if such a straggler later
// succeeds, its value is handed to abandon so it can be released.
func race[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error), abandon func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	runCtx, cancel := context.WithCancel(ctx)
	ch := make(chan result, 1)
	go func() {
		v, err := fn(runCtx)
		ch <- result{v: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	var err error
	select {
	case r := <-ch:
		cancel()
		return r.v, r.err
	case <-timer.C:
		err = errDeadline
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	if abandon != nil {
		go func() {
			if r := <-ch; r.err == nil {
				abandon(r.v)
			}
		}()
	}
	return zero, err
}
