package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, found, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, "k", []byte("v1")))
	require.NoError(t, m.Set(ctx, "k", []byte("v2")))

	v, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2"), v)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'z'

	out, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), out)
	out[0] = 'y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemory_Watch(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, "k", func(v []byte) { got <- v })
	}()

	require.Eventually(t, func() bool { return m.watcherCount("k") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Set(context.Background(), "other", []byte("x")))
	require.NoError(t, m.Set(context.Background(), "k", []byte("v1")))

	select {
	case v := <-got:
		assert.Equal(t, []byte("v1"), v)
	case <-time.After(time.Second):
		t.Fatal("watch callback not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
	assert.Equal(t, 0, m.watcherCount("k"))
	assert.Empty(t, got, "only the watched key is reported")
}
