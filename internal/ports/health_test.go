package ports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChecker struct {
	name  string
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (c *testChecker) Name() string { return c.name }

func (c *testChecker) Check(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.err
}

func TestHealthRegistry_Register(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&testChecker{name: "redis"}))
	require.NoError(t, registry.Register(&testChecker{name: "upstream"}))

	err := registry.Register(&testChecker{name: "redis"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateChecker)
}

func TestHealthRegistry_CheckAll_Empty(t *testing.T) {
	registry := NewHealthRegistry()

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Empty(t, result.Checks)
}

func TestHealthRegistry_CheckAll_AllHealthy(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&testChecker{name: "redis"}))
	require.NoError(t, registry.Register(&testChecker{name: "upstream"}))

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusHealthy, result.Status)
	require.Len(t, result.Checks, 2)
	assert.Equal(t, HealthStatusHealthy, result.Checks["redis"].Status)
	assert.Equal(t, HealthStatusHealthy, result.Checks["upstream"].Status)
}

func TestHealthRegistry_CheckAll_OneUnhealthy(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&testChecker{name: "redis", err: errors.New("connection refused")}))
	require.NoError(t, registry.Register(&testChecker{name: "upstream"}))

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Equal(t, HealthStatusUnhealthy, result.Checks["redis"].Status)
	assert.Equal(t, "connection refused", result.Checks["redis"].Message)
	assert.Equal(t, HealthStatusHealthy, result.Checks["upstream"].Status)
}

func TestHealthRegistry_CheckAll_RunsConcurrently(t *testing.T) {
	registry := NewHealthRegistry()

	// Two slow checks run in parallel, so the total is near one delay
	require.NoError(t, registry.Register(&testChecker{name: "a", delay: 50 * time.Millisecond}))
	require.NoError(t, registry.Register(&testChecker{name: "b", delay: 50 * time.Millisecond}))

	start := time.Now()
	result := registry.CheckAll(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Less(t, elapsed, 90*time.Millisecond)
}

func TestHealthRegistry_CheckAll_RespectsContext(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&testChecker{name: "slow", delay: time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["slow"].Message, "context deadline exceeded")
}
