package simulation

import (
	"errors"
	"fmt"

	"github.com/oshokin/energy-sim/internal/domain/energy"
)

var (
	// ErrUninitializedState is returned when an entity is used before its state was set.
	ErrUninitializedState = errors.New("entity state is not initialized")
	// ErrChildTimeout marks a child tick that exceeded its deadline.
	ErrChildTimeout = errors.New("child tick timed out")
	// ErrChildFailure marks a child tick that failed for any other reason.
	ErrChildFailure = errors.New("child tick failed")
	// ErrPersistenceWrite is returned when a mutation was applied in memory but not persisted.
	ErrPersistenceWrite = errors.New("persist state")
	// ErrCoordinatorState is returned for an invalid start, stop or manual tick.
	ErrCoordinatorState = errors.New("invalid coordinator state transition")
	// ErrInvalidState is returned when supplied state fails validation.
	ErrInvalidState = energy.ErrInvalidState
)

// ChildError describes a child that was excluded from a tick.
type ChildError struct {
	// ID is the child's identity.
	ID string
	// Attempts is the number of tick calls made.
	Attempts int
	// Err wraps ErrChildTimeout or ErrChildFailure together with the last cause.
	Err error
}

// Error implements error.
func (e *ChildError) Error() string {
	return fmt.Sprintf("child %s after %d attempt(s): %v", e.ID, e.Attempts, e.Err)
}

// Unwrap exposes the wrapped sentinel and cause.
func (e *ChildError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the child was excluded because it ran out of time.
func (e *ChildError) Timeout() bool {
	return errors.Is(e.Err, ErrChildTimeout)
}

// persistError wraps a store failure with ErrPersistenceWrite.
func persistError(what string, err error) error {
	return fmt.Errorf("%w %s: %w", ErrPersistenceWrite, what, err)
}
