package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when a call reaches a mailbox that has been stopped.
var ErrStopped = errors.New("mailbox stopped")

// DefaultMailboxCapacity is the number of calls that can queue without blocking the sender.
const DefaultMailboxCapacity = 64

// job is a single queued invocation.
type job struct {
	// ctx is the caller's context; jobs whose context is done are skipped.
	ctx context.Context //nolint:containedctx // The caller's context travels with its invocation.
	// fn is the invocation body.
	fn func(ctx context.Context) error
	// result receives exactly one value.
	result chan error
}

// Mailbox serializes invocations on a single goroutine.
type Mailbox struct {
	// jobs is the queue of pending invocations.
	jobs chan job
	// stop is closed to request shutdown.
	stop chan struct{}
	// done is closed once the loop has exited.
	done chan struct{}
	// stopOnce guards stop.
	stopOnce sync.Once
	// busy is true while an invocation runs.
	busy atomic.Bool
	// lastUsed is the unix nano time the last invocation finished.
	lastUsed atomic.Int64
}

// NewMailbox starts a mailbox loop. A non-positive capacity selects DefaultMailboxCapacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}

	m := &Mailbox{
		jobs: make(chan job, capacity),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	m.lastUsed.Store(time.Now().UnixNano())

	go m.loop()

	return m
}

// Do enqueues fn and waits for it to finish, for ctx to be done, or for the mailbox to stop.
// Calls from one goroutine run in the order they were made.
func (m *Mailbox) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{
		ctx:    ctx,
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case m.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return ErrStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Stop asks the loop to finish queued invocations and exit. It does not wait.
func (m *Mailbox) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Done is closed once the loop has exited.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

// Idle reports whether no invocation is running or queued and the last one finished before now - d.
func (m *Mailbox) Idle(now time.Time, d time.Duration) bool {
	if m.busy.Load() || len(m.jobs) > 0 {
		return false
	}

	return now.Sub(time.Unix(0, m.lastUsed.Load())) >= d
}

func (m *Mailbox) loop() {
	defer close(m.done)

	for {
		select {
		case j := <-m.jobs:
			m.run(j)
		case <-m.stop:
			// Queued work was accepted before the stop; finish it.
			for {
				select {
				case j := <-m.jobs:
					m.run(j)
				default:
					return
				}
			}
		}
	}
}

func (m *Mailbox) run(j job) {
	m.busy.Store(true)

	defer func() {
		m.lastUsed.Store(time.Now().UnixNano())
		m.busy.Store(false)
	}()

	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}

	j.result <- m.invoke(j)
}

// invoke runs the job body, turning a panic into an error so the actor survives it.
func (m *Mailbox) invoke(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor panic: %v", r)
		}
	}()

	return j.fn(j.ctx)
}
