package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// childCall ticks one child. It must return only after the child's publish is queued.
type childCall func(ctx context.Context, id string) error

// fanOut ticks every child concurrently and waits for all of them. The result
// maps each failed child to its error; a child absent from the map succeeded.
func (s *System) fanOut(ctx context.Context, children []string, depth int, call childCall) map[string]*ChildError {
	var (
		g      errgroup.Group
		errs   = make([]*ChildError, len(children))
		failed = make(map[string]*ChildError)
	)

	if s.opts.FanOutLimit > 0 {
		g.SetLimit(s.opts.FanOutLimit)
	}

	for i, child := range children {
		g.Go(func() error {
			errs[i] = s.tickWithRetry(ctx, child, depth, call)

			// Failures are isolated per child, never propagated to the group.
			return nil
		})
	}

	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			failed[err.ID] = err
		}
	}

	return failed
}

// tickWithRetry calls the child with a deadline and retries transient failures with exponential backoff.
func (s *System) tickWithRetry(ctx context.Context, child string, depth int, call childCall) *ChildError {
	attempts := 0

	operation := func() error {
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, s.opts.callTimeout(depth))
		defer cancel()

		err := call(callCtx, child)
		if err == nil {
			return nil
		}

		if !retryable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryBackoff
	policy.MaxElapsedTime = 0
	policy.Reset()

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.opts.MaxRetries), ctx))
	if err == nil {
		return nil
	}

	reason := ErrChildFailure
	if errors.Is(err, context.DeadlineExceeded) {
		reason = ErrChildTimeout
	}

	return &ChildError{
		ID:       child,
		Attempts: attempts,
		Err:      fmt.Errorf("%w: %w", reason, err),
	}
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return !errors.Is(err, ErrUninitializedState) && !errors.Is(err, ErrInvalidState)
}
