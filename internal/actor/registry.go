package actor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when an actor is addressed with an empty identity.
var ErrEmptyID = errors.New("actor id is empty")

// NewID returns a fresh random actor identity.
func NewID() string {
	return uuid.NewString()
}

// ActivateFunc builds an actor for id, typically by loading its persisted state.
type ActivateFunc[A any] func(ctx context.Context, id string) (A, error)

// DeactivateFunc is called inside the actor's mailbox before it is released.
type DeactivateFunc[A any] func(ctx context.Context, actor A) error

// activation is the runtime slot of a single actor.
type activation[A any] struct {
	// mailbox serializes calls to actor.
	mailbox *Mailbox
	// actor is valid once activated is true. All three are only touched inside the mailbox.
	actor     A
	activated bool
	// stopped is set by the deactivate job; calls queued behind it go to a fresh slot.
	stopped bool
	// after is closed when the previous activation of the same id finished deactivating.
	after <-chan struct{}
}

// Registry addresses actors of one type by identity.
type Registry[A any] struct {
	// name labels errors.
	name string
	// activate builds an actor on first use.
	activate ActivateFunc[A]
	// deactivate runs before an actor is released; may be nil.
	deactivate DeactivateFunc[A]
	// capacity sizes each mailbox.
	capacity int

	// mu protects actors and draining.
	mu sync.Mutex
	// actors holds live activations.
	actors map[string]*activation[A]
	// draining holds completion signals of activations being deactivated.
	draining map[string]chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption[A any] func(*Registry[A])

// WithDeactivate sets the hook run before an actor is released.
func WithDeactivate[A any](fn DeactivateFunc[A]) RegistryOption[A] {
	return func(r *Registry[A]) {
		r.deactivate = fn
	}
}

// WithMailboxCapacity sets the queue size of each actor's mailbox.
func WithMailboxCapacity[A any](capacity int) RegistryOption[A] {
	return func(r *Registry[A]) {
		r.capacity = capacity
	}
}

// NewRegistry creates a registry whose actors are built by activate.
func NewRegistry[A any](name string, activate ActivateFunc[A], opts ...RegistryOption[A]) *Registry[A] {
	r := &Registry[A]{
		name:     name,
		activate: activate,
		actors:   make(map[string]*activation[A]),
		draining: make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Name returns the registry label.
func (r *Registry[A]) Name() string {
	return r.name
}

// Call runs fn inside the actor's mailbox, activating the actor first if needed.
// A failed activation is returned to the caller and retried on the next call.
func (r *Registry[A]) Call(ctx context.Context, id string, fn func(ctx context.Context, actor A) error) error {
	if id == "" {
		return fmt.Errorf("%s: %w", r.name, ErrEmptyID)
	}

	slot := r.slot(id)

	err := slot.mailbox.Do(ctx, r.job(slot, id, fn))

	// The slot was deactivated between lookup and enqueue; go again on a fresh one.
	if errors.Is(err, ErrStopped) {
		return r.Call(ctx, id, fn)
	}

	return err
}

// job wraps fn into the mailbox invocation of one call on slot.
func (r *Registry[A]) job(
	slot *activation[A],
	id string,
	fn func(ctx context.Context, actor A) error,
) func(context.Context) error {
	return func(ctx context.Context) error {
		if slot.stopped {
			return ErrStopped
		}

		if !slot.activated {
			if slot.after != nil {
				select {
				case <-slot.after:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			actor, err := r.activate(ctx, id)
			if err != nil {
				return fmt.Errorf("activate %s %s: %w", r.name, id, err)
			}

			slot.actor = actor
			slot.activated = true
		}

		return fn(ctx, slot.actor)
	}
}

// Activate ensures the actor is active without doing anything else.
func (r *Registry[A]) Activate(ctx context.Context, id string) error {
	return r.Call(ctx, id, func(context.Context, A) error { return nil })
}

// Deactivate releases the actor after its queued calls finish. The deactivate hook
// runs inside the mailbox. Deactivating an inactive actor is a no-op.
func (r *Registry[A]) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()

	slot, ok := r.actors[id]
	if !ok {
		r.mu.Unlock()

		return nil
	}

	delete(r.actors, id)

	drained := make(chan struct{})
	r.draining[id] = drained
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.draining[id] == drained {
			delete(r.draining, id)
		}
		r.mu.Unlock()

		close(drained)
	}()

	// Detach from the caller's cancellation so state is persisted even during shutdown.
	hookCtx := context.WithoutCancel(ctx)

	err := slot.mailbox.Do(hookCtx, func(ctx context.Context) error {
		slot.stopped = true

		if !slot.activated || r.deactivate == nil {
			return nil
		}

		return r.deactivate(ctx, slot.actor)
	})

	slot.mailbox.Stop()
	<-slot.mailbox.Done()

	if err != nil {
		return fmt.Errorf("deactivate %s %s: %w", r.name, id, err)
	}

	return nil
}

// DeactivateIdle releases every actor idle for at least d and returns how many were released.
func (r *Registry[A]) DeactivateIdle(ctx context.Context, d time.Duration) (int, error) {
	now := time.Now()

	r.mu.Lock()

	var idle []string

	for id, slot := range r.actors {
		if slot.mailbox.Idle(now, d) {
			idle = append(idle, id)
		}
	}

	r.mu.Unlock()

	var errs []error

	for _, id := range idle {
		if err := r.Deactivate(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	return len(idle), errors.Join(errs...)
}

// DeactivateAll releases every active actor.
func (r *Registry[A]) DeactivateAll(ctx context.Context) error {
	var errs []error

	for _, id := range r.IDs() {
		if err := r.Deactivate(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Active returns the number of live activations.
func (r *Registry[A]) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.actors)
}

// IDs returns the identities of live activations in ascending order.
func (r *Registry[A]) IDs() []string {
	r.mu.Lock()

	ids := make([]string, 0, len(r.actors))
	for id := range r.actors {
		ids = append(ids, id)
	}

	r.mu.Unlock()

	sort.Strings(ids)

	return ids
}

// slot returns the live activation for id, creating one if needed.
func (r *Registry[A]) slot(id string) *activation[A] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot, ok := r.actors[id]; ok {
		return slot
	}

	slot := &activation[A]{
		mailbox: NewMailbox(r.capacity),
		after:   r.draining[id],
	}

	r.actors[id] = slot

	return slot
}
