package channel

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrNoSubscriber is returned when a value is published to an owner nobody listens on.
	ErrNoSubscriber = errors.New("no subscriber for owner")
	// ErrClosed is returned by operations on a closed hub.
	ErrClosed = errors.New("hub closed")
)

// Hub routes values of type T to subscriptions keyed by owner identity.
type Hub[T any] struct {
	// mu protects subs and closed.
	mu sync.RWMutex
	// subs holds the live subscriptions of each owner.
	subs map[string][]*Subscription[T]
	// closed rejects further publishes and subscriptions.
	closed bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		subs: make(map[string][]*Subscription[T]),
	}
}

// Subscribe opens a subscription for owner. An owner may hold several; each receives every value.
func (h *Hub[T]) Subscribe(owner string) (*Subscription[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	sub := &Subscription[T]{
		hub:    h,
		owner:  owner,
		notify: make(chan struct{}, 1),
	}

	h.subs[owner] = append(h.subs[owner], sub)

	return sub, nil
}

// Publish enqueues v for every subscription of owner and returns once it is queued.
func (h *Hub[T]) Publish(ctx context.Context, owner string, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	subs := h.subs[owner]
	if len(subs) == 0 {
		return ErrNoSubscriber
	}

	for _, sub := range subs {
		sub.push(v)
	}

	return nil
}

// Subscribers returns the number of subscriptions held by owner.
func (h *Hub[T]) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[owner])
}

// Close detaches every subscription and rejects further use.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for owner, subs := range h.subs {
		for _, sub := range subs {
			sub.markClosed()
		}

		delete(h.subs, owner)
	}
}

func (h *Hub[T]) remove(sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := slices.DeleteFunc(h.subs[sub.owner], func(s *Subscription[T]) bool { return s == sub })
	if len(subs) == 0 {
		delete(h.subs, sub.owner)
		return
	}

	h.subs[sub.owner] = subs
}

// Subscription is one owner's inbox on a hub.
type Subscription[T any] struct {
	// hub is the source of values.
	hub *Hub[T]
	// owner is the identity values are addressed to.
	owner string
	// mu protects items and closed.
	mu sync.Mutex
	// items holds queued values in arrival order.
	items []T
	// closed is set once the subscription is detached.
	closed bool
	// notify holds a token whenever items became non-empty.
	notify chan struct{}
}

// Owner returns the identity this subscription listens on.
func (s *Subscription[T]) Owner() string {
	return s.owner
}

// Drain removes and returns every queued value in arrival order.
func (s *Subscription[T]) Drain() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	s.items = nil

	return items
}

// Len returns the number of queued values.
func (s *Subscription[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// Notify returns a channel that receives a token after values arrive.
func (s *Subscription[T]) Notify() <-chan struct{} {
	return s.notify
}

// Close detaches the subscription from its hub. Queued values stay drainable.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	if !alreadyClosed {
		s.hub.remove(s)
	}
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.items = append(s.items, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}
