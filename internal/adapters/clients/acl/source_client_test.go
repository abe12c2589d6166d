package acl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-aggregator/internal/adapters/clients"
)

// newClientForServer wires a source client to an httptest server.
func newClientForServer(t *testing.T, url string) *SourceClient {
	t.Helper()

	fetcher, err := clients.NewFetcher(&clients.Config{
		Name:     "primary",
		URL:      url,
		Priority: 1,
		Timeout:  2 * time.Second,
		Retry: clients.RetryPolicy{
			MaxAttempts:    1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker: clients.BreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  30 * time.Second,
		},
	})
	require.NoError(t, err)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	return NewSourceClient(SourceClientConfig{
		Fetcher: fetcher,
		Now:     func() time.Time { return fixed },
	})
}

func TestSourceClient_FetchContentField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":"Stay hungry","author":"Steve Jobs"}`))
	}))
	defer server.Close()

	client := newClientForServer(t, server.URL)

	quote, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Stay hungry", quote.Content)
	assert.Equal(t, "Steve Jobs", quote.Author)
	assert.Equal(t, "primary", quote.Source)

	// Translation mints a fresh UUID and stamps retrieval time
	_, err = uuid.Parse(quote.ID)
	assert.NoError(t, err)
	require.NotNil(t, quote.RetrievedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), *quote.RetrievedAt)
}

func TestSourceClient_FetchQuoteFieldFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"quote":"Less is more","author":"Mies"}`))
	}))
	defer server.Close()

	client := newClientForServer(t, server.URL)

	quote, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Less is more", quote.Content)
}

func TestSourceClient_FetchDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newClientForServer(t, server.URL)

	quote, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No content available", quote.Content)
	assert.Equal(t, "Unknown", quote.Author)
}

func TestSourceClient_FetchMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := newClientForServer(t, server.URL)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding primary response")
}

func TestSourceClient_FetchUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newClientForServer(t, server.URL)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching from primary")
}

func TestSourceClient_NameAndPriority(t *testing.T) {
	client := newClientForServer(t, "http://localhost:1")
	assert.Equal(t, "primary", client.Name())
	assert.Equal(t, 1, client.Priority())
}

func TestNewSourceClient_RequiresFetcher(t *testing.T) {
	assert.Panics(t, func() {
		NewSourceClient(SourceClientConfig{})
	})
}
