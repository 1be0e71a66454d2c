package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	token := registry.Add("client")
	require.NotEmpty(t, token)

	got, ok := registry.Get("client")
	require.True(t, ok)
	assert.Equal(t, token, got)
}

func TestAddReplacesExistingToken(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	first := registry.Add("client")
	second := registry.Add("client")
	require.NotEqual(t, first, second)

	got, ok := registry.Get("client")
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, registry.Len())
}

func TestGetAbsent(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	_, ok := registry.Get("unknown")
	assert.False(t, ok)
}

func TestTakeRemovesEntry(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	token := registry.Add("client")

	got, ok := registry.Take("client")
	require.True(t, ok)
	assert.Equal(t, token, got)

	// Single-use: a second take must fail.
	_, ok = registry.Take("client")
	assert.False(t, ok)
	_, ok = registry.Get("client")
	assert.False(t, ok)
}

func TestConsumeRemovesEntry(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	registry.Add("client")
	registry.Consume("client")

	_, ok := registry.Get("client")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}

func TestConsumeAbsentIsNoOp(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)

	registry.Add("client")
	registry.Consume("someone-else")

	_, ok := registry.Get("client")
	assert.True(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestTakeIsAtomicUnderConcurrency(t *testing.T) {
	registry := New(DefaultTTL, DefaultMaxEntries)
	registry.Add("client")

	const goroutines = 32
	var wg sync.WaitGroup
	successes := make(chan string, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, ok := registry.Take("client"); ok {
				successes <- token
			}
		}()
	}
	wg.Wait()
	close(successes)

	var winners []string
	for token := range successes {
		winners = append(winners, token)
	}
	assert.Len(t, winners, 1, "exactly one goroutine may consume the challenge")
}

func TestExpiry(t *testing.T) {
	registry := New(time.Minute, DefaultMaxEntries)

	current := time.Unix(1000, 0)
	registry.now = func() time.Time { return current }

	registry.Add("client")

	current = current.Add(30 * time.Second)
	_, ok := registry.Get("client")
	assert.True(t, ok, "token should still be live before the TTL elapses")

	current = current.Add(45 * time.Second)
	_, ok = registry.Get("client")
	assert.False(t, ok, "token should expire after the TTL")
	assert.Equal(t, 0, registry.Len(), "expired entry is removed on access")
}

func TestAddResetsTTL(t *testing.T) {
	registry := New(time.Minute, DefaultMaxEntries)

	current := time.Unix(1000, 0)
	registry.now = func() time.Time { return current }

	registry.Add("client")
	current = current.Add(50 * time.Second)
	token := registry.Add("client")

	current = current.Add(30 * time.Second)
	got, ok := registry.Get("client")
	require.True(t, ok, "re-adding must reset the TTL")
	assert.Equal(t, token, got)
}

func TestEvictionAtCapacity(t *testing.T) {
	registry := New(DefaultTTL, 3)

	registry.Add("a")
	registry.Add("b")
	registry.Add("c")
	registry.Add("d")

	assert.Equal(t, 3, registry.Len())

	// "a" was the least-recently-set entry and must be gone.
	_, ok := registry.Get("a")
	assert.False(t, ok)
	_, ok = registry.Get("d")
	assert.True(t, ok)
}

func TestEvictionPrefersLeastRecentlySet(t *testing.T) {
	registry := New(DefaultTTL, 2)

	registry.Add("a")
	registry.Add("b")
	// Refreshing "a" makes "b" the eviction candidate.
	registry.Add("a")
	registry.Add("c")

	_, ok := registry.Get("b")
	assert.False(t, ok)
	_, ok = registry.Get("a")
	assert.True(t, ok)
	_, ok = registry.Get("c")
	assert.True(t, ok)
}
