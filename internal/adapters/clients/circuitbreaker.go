package clients

import (
	"context"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed is the normal operating state. Calls are allowed through.
	StateClosed State = iota

	// StateOpen is the failing state. Calls fail immediately without network I/O.
	StateOpen

	// StateHalfOpen is the recovery testing state. A single trial call is
	// allowed through to probe recovery.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int

	// RecoveryTimeout is how long to wait in open state before allowing a
	// trial call.
	RecoveryTimeout time.Duration
}

// CircuitBreaker isolates a persistently failing source.
// One instance exists per source for the lifetime of the process; it is
// shared by every in-flight request targeting that source, so all state
// transitions happen under a single lock as one unit.
//
// State transitions:
//   - Closed → Open: after FailureThreshold consecutive failures
//   - Open → HalfOpen: once RecoveryTimeout has elapsed since opening
//   - HalfOpen → Closed: the single trial call succeeds
//   - HalfOpen → Open: the single trial call fails
type CircuitBreaker struct {
	mu       sync.Mutex
	state    State
	failures int       // consecutive failures in closed state
	openedAt time.Time // when the circuit last opened
	trial    bool      // trial call in flight during half-open state
	cfg      BreakerConfig

	// onStateChange is called when the state changes. Used for logging/metrics.
	onStateChange func(from, to State)

	// now returns the current time. Overridable for testing.
	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given configuration.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange sets a callback that is invoked when the circuit state changes.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Do runs fn under the breaker: the call is rejected with ErrCircuitOpen when
// the circuit is open, and its outcome is recorded as one logical
// success or failure. fn is expected to contain the full retry cycle, so an
// exhausted retry loop counts as a single failure.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()

	return nil
}

// Allow checks if a call should be allowed through.
// May transition Open → HalfOpen when the recovery timeout has elapsed.
// In half-open state only the single trial call is admitted.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.RecoveryTimeout {
			cb.transitionTo(StateHalfOpen)
			cb.trial = true
			return true
		}
		return false

	case StateHalfOpen:
		if cb.trial {
			return false
		}
		cb.trial = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call.
// In half-open state the trial success closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.trial = false
		cb.transitionTo(StateClosed)
	}
}

// RecordFailure records a failed call.
// In closed state this may trip the circuit; in half-open state the failed
// trial reopens it with a fresh recovery window.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openedAt = cb.now()
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		cb.trial = false
		cb.openedAt = cb.now()
		cb.transitionTo(StateOpen)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transitionTo changes the circuit breaker state.
// Must be called with lock held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.failures = 0

	if cb.onStateChange != nil {
		// Call in goroutine to avoid blocking while holding lock
		go cb.onStateChange(oldState, newState)
	}
}
