package trigger

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler that never fires on its own; Fire runs a trigger on demand.
type Manual struct {
	// mu protects armed.
	mu sync.Mutex
	// armed holds callbacks of armed triggers.
	armed map[string]manualTrigger
}

// manualTrigger is an armed entry of Manual.
type manualTrigger struct {
	// period is the requested period.
	period time.Duration
	// fire is the callback.
	fire FireFunc
}

var _ Scheduler = (*Manual)(nil)

// NewManual creates a manual scheduler.
func NewManual() *Manual {
	return &Manual{
		armed: make(map[string]manualTrigger),
	}
}

// Arm records the trigger without firing it.
func (m *Manual) Arm(_ context.Context, name string, period time.Duration, fire FireFunc) error {
	if period <= 0 {
		return errInvalidPeriod
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.armed[name] = manualTrigger{period: period, fire: fire}

	return nil
}

// Disarm forgets the trigger.
func (m *Manual) Disarm(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.armed, name)

	return nil
}

// Resume reports whether the trigger is armed and refreshes its callback.
func (m *Manual) Resume(_ context.Context, name string, fire FireFunc) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.armed[name]
	if ok {
		t.fire = fire
		m.armed[name] = t
	}

	return ok, nil
}

// Armed reports whether name is armed and its period.
func (m *Manual) Armed(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.armed[name]

	return t.period, ok
}

// Fire runs the trigger's callback synchronously and reports whether it was armed.
func (m *Manual) Fire(ctx context.Context, name string) bool {
	m.mu.Lock()
	t, ok := m.armed[name]
	m.mu.Unlock()

	if !ok {
		return false
	}

	t.fire(ctx)

	return true
}
