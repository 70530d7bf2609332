package badgerkv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "state", []byte("one")))
	require.NoError(t, s.Set(ctx, "state", []byte("two")))

	v, found, err := s.Get(ctx, "state")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", string(v))
}

func TestStore_PersistentReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("durable")))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "durable", string(v))
}

func TestStore_Watch(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, "ledger", func(v []byte) {
			mu.Lock()
			seen = append(seen, string(v))
			mu.Unlock()
		})
	}()

	// The subscription registers asynchronously; keep writing until the
	// watcher observes a value.
	require.Eventually(t, func() bool {
		require.NoError(t, s.Set(context.Background(), "ledger-other", []byte("ignored")))
		require.NoError(t, s.Set(context.Background(), "ledger", []byte("update")))
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, v := range seen {
		assert.Equal(t, "update", v, "prefix matches for other keys are filtered")
	}
}
