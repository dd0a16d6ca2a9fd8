package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// counter is a minimal actor with unsynchronized state.
type counter struct {
	// id is the actor identity.
	id string
	// value is mutated only inside the mailbox.
	value int
}

// TestMailboxSerializesCalls verifies concurrent calls never overlap.
func TestMailboxSerializesCalls(t *testing.T) {
	t.Parallel()

	m := NewMailbox(0)
	defer m.Stop()

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		total   int
		failed  atomic.Int32
		wg      sync.WaitGroup
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := m.Do(context.Background(), func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}

				total++

				inside.Add(-1)

				return nil
			})
			if err != nil {
				failed.Add(1)
			}
		}()
	}

	wg.Wait()
	require.Zero(t, failed.Load())
	require.False(t, overlap.Load())
	require.Equal(t, 50, total)
}

// TestMailboxRecoversPanic ensures a panicking call is reported and the mailbox keeps working.
func TestMailboxRecoversPanic(t *testing.T) {
	t.Parallel()

	m := NewMailbox(1)
	defer m.Stop()

	err := m.Do(context.Background(), func(context.Context) error { panic("boom") })
	require.ErrorContains(t, err, "boom")

	require.NoError(t, m.Do(context.Background(), func(context.Context) error { return nil }))
}

// TestMailboxStopped verifies calls after Stop fail with ErrStopped.
func TestMailboxStopped(t *testing.T) {
	t.Parallel()

	m := NewMailbox(1)
	m.Stop()
	<-m.Done()

	err := m.Do(context.Background(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrStopped)
}

// TestMailboxCallerTimeout returns the caller's deadline while a slow call keeps running.
func TestMailboxCallerTimeout(t *testing.T) {
	t.Parallel()

	m := NewMailbox(1)
	defer m.Stop()

	release := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Do(ctx, func(context.Context) error {
		<-release
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, m.Do(context.Background(), func(context.Context) error { return nil }))
}

// TestRegistryLazyActivation verifies actors are built once on first call.
func TestRegistryLazyActivation(t *testing.T) {
	t.Parallel()

	var activations atomic.Int32

	r := NewRegistry("counter", func(_ context.Context, id string) (*counter, error) {
		activations.Add(1)
		return &counter{id: id}, nil
	})

	ctx := context.Background()

	for range 3 {
		require.NoError(t, r.Call(ctx, "a", func(_ context.Context, c *counter) error {
			c.value++
			return nil
		}))
	}

	require.EqualValues(t, 1, activations.Load())
	require.Equal(t, 1, r.Active())
	require.Equal(t, []string{"a"}, r.IDs())

	err := r.Call(ctx, "", func(context.Context, *counter) error { return nil })
	require.ErrorIs(t, err, ErrEmptyID)
}

// TestRegistryActivationFailureRetried ensures a failed activation is retried on the next call.
func TestRegistryActivationFailureRetried(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	errLoad := errors.New("load failed")

	r := NewRegistry("counter", func(_ context.Context, id string) (*counter, error) {
		if attempts.Add(1) == 1 {
			return nil, errLoad
		}

		return &counter{id: id}, nil
	})

	ctx := context.Background()
	noop := func(context.Context, *counter) error { return nil }

	require.ErrorIs(t, r.Call(ctx, "a", noop), errLoad)
	require.NoError(t, r.Call(ctx, "a", noop))
	require.EqualValues(t, 2, attempts.Load())
}

// TestRegistryDeactivatePersists verifies the hook sees the latest state and reactivation reloads it.
func TestRegistryDeactivatePersists(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		saved = map[string]int{}
	)

	r := NewRegistry(
		"counter",
		func(_ context.Context, id string) (*counter, error) {
			mu.Lock()
			defer mu.Unlock()

			return &counter{id: id, value: saved[id]}, nil
		},
		WithDeactivate(func(_ context.Context, c *counter) error {
			mu.Lock()
			defer mu.Unlock()

			saved[c.id] = c.value

			return nil
		}),
	)

	ctx := context.Background()
	incr := func(_ context.Context, c *counter) error {
		c.value++
		return nil
	}

	require.NoError(t, r.Call(ctx, "a", incr))
	require.NoError(t, r.Call(ctx, "a", incr))
	require.NoError(t, r.Deactivate(ctx, "a"))
	require.Zero(t, r.Active())

	// Deactivating an inactive actor is a no-op.
	require.NoError(t, r.Deactivate(ctx, "a"))

	var got int

	require.NoError(t, r.Call(ctx, "a", func(_ context.Context, c *counter) error {
		got = c.value
		return nil
	}))
	require.Equal(t, 2, got)
}

// TestRegistryDeactivateIdle releases only actors that have been idle long enough.
func TestRegistryDeactivateIdle(t *testing.T) {
	t.Parallel()

	r := NewRegistry("counter", func(_ context.Context, id string) (*counter, error) {
		return &counter{id: id}, nil
	})

	ctx := context.Background()
	noop := func(context.Context, *counter) error { return nil }

	require.NoError(t, r.Call(ctx, "a", noop))
	require.NoError(t, r.Call(ctx, "b", noop))

	released, err := r.DeactivateIdle(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, released)

	released, err = r.DeactivateIdle(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, released)
	require.Zero(t, r.Active())
}

// TestRegistryCallQueuedBehindDeactivate verifies a call that reached a slot after its
// deactivation was queued never runs on the released actor and is served by a fresh one.
func TestRegistryCallQueuedBehindDeactivate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var activations atomic.Int32

	r := NewRegistry("counter",
		func(_ context.Context, id string) (*counter, error) {
			activations.Add(1)

			return &counter{id: id}, nil
		},
		WithDeactivate(func(context.Context, *counter) error { return nil }),
	)

	require.NoError(t, r.Activate(ctx, "a"))

	r.mu.Lock()
	old := r.actors["a"]
	r.mu.Unlock()

	// Hold the mailbox so the deactivate job and the late call queue in that order.
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = old.mailbox.Do(ctx, func(context.Context) error {
			close(held)
			<-release

			return nil
		})
	}()

	<-held

	deactivated := make(chan error, 1)

	go func() {
		deactivated <- r.Deactivate(ctx, "a")
	}()

	require.Eventually(t, func() bool { return len(old.mailbox.jobs) == 1 }, time.Second, time.Millisecond)

	var ranOnOld atomic.Bool

	late := make(chan error, 1)

	go func() {
		late <- old.mailbox.Do(ctx, r.job(old, "a", func(context.Context, *counter) error {
			ranOnOld.Store(true)

			return nil
		}))
	}()

	require.Eventually(t, func() bool { return len(old.mailbox.jobs) == 2 }, time.Second, time.Millisecond)

	close(release)

	require.NoError(t, <-deactivated)
	require.ErrorIs(t, <-late, ErrStopped)
	require.False(t, ranOnOld.Load())

	require.NoError(t, r.Call(ctx, "a", func(_ context.Context, c *counter) error {
		c.value++

		return nil
	}))
	require.EqualValues(t, 2, activations.Load())
}
