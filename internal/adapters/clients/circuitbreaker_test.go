package clients

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	})

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	})

	// Record failures up to threshold
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	// Should block requests when open
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	})

	// Record some failures
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	// Success resets counter
	cb.RecordSuccess()

	// Need full 3 failures again to open
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OpenToHalfOpen(t *testing.T) {
	now := time.Now()

	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	cb.now = func() time.Time { return now }

	// Trip the circuit
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	// Advance time past recovery timeout
	now = now.Add(150 * time.Millisecond)

	// Should transition to half-open on Allow()
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	now := time.Now()

	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(150 * time.Millisecond)

	// First call after the window is the trial; concurrent calls are rejected
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenToClosed(t *testing.T) {
	now := time.Now()

	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	cb.now = func() time.Time { return now }

	// Trip the circuit and wait for half-open
	cb.RecordFailure()
	now = now.Add(150 * time.Millisecond)
	cb.Allow()
	assert.Equal(t, StateHalfOpen, cb.State())

	// The single trial success closes the circuit
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	now := time.Now()

	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(150 * time.Millisecond)
	cb.Allow()
	assert.Equal(t, StateHalfOpen, cb.State())

	// Failed trial reopens with a fresh recovery window
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	// Window restarts from the trial failure, not the first opening
	now = now.Add(50 * time.Millisecond)
	assert.False(t, cb.Allow())

	now = now.Add(100 * time.Millisecond)
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Do(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	})

	errBoom := errors.New("boom")

	// Failures propagate and count toward the threshold
	err := cb.Do(context.Background(), func(context.Context) error { return errBoom })
	require.ErrorIs(t, err, errBoom)

	err = cb.Do(context.Background(), func(context.Context) error { return errBoom })
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// Open circuit rejects without invoking fn
	called := false
	err = cb.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Second,
	})

	var (
		mu          sync.Mutex
		transitions []string
		notified    = make(chan struct{}, 1)
	)

	cb.OnStateChange(func(from, to State) {
		mu.Lock()
		transitions = append(transitions, from.String()+"->"+to.String())
		mu.Unlock()
		notified <- struct{}{}
	})

	cb.RecordFailure()

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 100,
		RecoveryTimeout:  30 * time.Second,
	})

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Allow()
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.State()
		}()
	}

	wg.Wait()
	assert.Equal(t, StateClosed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
