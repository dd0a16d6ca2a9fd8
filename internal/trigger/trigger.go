package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/repository/state"
)

// namespace is the store namespace of trigger records.
const namespace = "trigger"

// errInvalidPeriod is returned when a trigger is armed with a non-positive period.
var errInvalidPeriod = errors.New("trigger period must be positive")

// FireFunc is invoked on every firing.
type FireFunc func(ctx context.Context)

// Record is the persisted registration of a trigger.
type Record struct {
	// Name identifies the trigger.
	Name string `json:"name"`
	// Period is the time between firings.
	Period time.Duration `json:"period"`
	// Armed is true while the trigger should fire.
	Armed bool `json:"armed"`
	// ArmedAt is when the trigger was last armed.
	ArmedAt time.Time `json:"armed_at"`
}

// Scheduler arms and disarms named triggers.
type Scheduler interface {
	// Arm persists the trigger and starts firing immediately, then every period.
	Arm(ctx context.Context, name string, period time.Duration, fire FireFunc) error
	// Disarm persists the trigger as disarmed and stops future firings. It does not wait for an in-flight firing.
	Disarm(ctx context.Context, name string) error
	// Resume restarts an armed trigger from its persisted record and reports whether it was armed.
	Resume(ctx context.Context, name string, fire FireFunc) (bool, error)
}

// loop is a running trigger.
type loop struct {
	// cancel stops the loop.
	cancel context.CancelFunc
	// done is closed when the loop has exited.
	done chan struct{}
}

// Service runs triggers on wall-clock tickers and persists their records.
type Service struct {
	// records persists registrations.
	records *state.Repository[Record]
	// mu protects loops.
	mu sync.Mutex
	// loops holds running triggers by name.
	loops map[string]*loop
}

var _ Scheduler = (*Service)(nil)

// NewService creates a trigger service persisting records in store.
func NewService(store state.Store) *Service {
	return &Service{
		records: state.NewRepository[Record](store, namespace),
		loops:   make(map[string]*loop),
	}
}

// Arm persists the trigger and starts it. Arming a running trigger replaces it.
func (s *Service) Arm(ctx context.Context, name string, period time.Duration, fire FireFunc) error {
	if period <= 0 {
		return errInvalidPeriod
	}

	record := &Record{
		Name:    name,
		Period:  period,
		Armed:   true,
		ArmedAt: time.Now(),
	}

	if err := s.records.Save(ctx, name, record); err != nil {
		return fmt.Errorf("persist trigger %s: %w", name, err)
	}

	s.start(ctx, name, period, fire)

	return nil
}

// Disarm persists the trigger as disarmed and stops its loop.
func (s *Service) Disarm(ctx context.Context, name string) error {
	record, err := s.records.Load(ctx, name)

	switch {
	case err == nil:
	case errors.Is(err, state.ErrNotFound):
		record = &Record{Name: name}
	default:
		return fmt.Errorf("load trigger %s: %w", name, err)
	}

	record.Armed = false

	if err = s.records.Save(ctx, name, record); err != nil {
		return fmt.Errorf("persist trigger %s: %w", name, err)
	}

	s.mu.Lock()
	if l, ok := s.loops[name]; ok {
		l.cancel()
		delete(s.loops, name)
	}
	s.mu.Unlock()

	return nil
}

// Resume restarts name if its persisted record is armed.
func (s *Service) Resume(ctx context.Context, name string, fire FireFunc) (bool, error) {
	record, err := s.records.Load(ctx, name)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("load trigger %s: %w", name, err)
	}

	if !record.Armed || record.Period <= 0 {
		return false, nil
	}

	s.mu.Lock()
	_, running := s.loops[name]
	s.mu.Unlock()

	if !running {
		s.start(ctx, name, record.Period, fire)
	}

	return true, nil
}

// Lookup returns the persisted record of name.
func (s *Service) Lookup(ctx context.Context, name string) (*Record, error) {
	return s.records.Load(ctx, name)
}

// Close stops every loop and waits for in-flight firings to return. Records stay armed.
func (s *Service) Close() {
	s.mu.Lock()
	loops := s.loops
	s.loops = make(map[string]*loop)
	s.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}

	for _, l := range loops {
		<-l.done
	}
}

func (s *Service) start(ctx context.Context, name string, period time.Duration, fire FireFunc) {
	// The loop outlives the arming call but keeps its logger.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx = logger.WithKV(loopCtx, "trigger", name)

	l := &loop{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if previous, ok := s.loops[name]; ok {
		previous.cancel()
	}

	s.loops[name] = l
	s.mu.Unlock()

	go run(loopCtx, l.done, period, fire)
}

func run(ctx context.Context, done chan<- struct{}, period time.Duration, fire FireFunc) {
	defer close(done)

	logger.DebugKV(ctx, "Trigger armed", "period", period.String())

	fire(ctx)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Trigger stopped")
			return
		case <-ticker.C:
			// A cancel that raced with the tick wins.
			if ctx.Err() != nil {
				return
			}

			fire(ctx)
		}
	}
}
