package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobclean/common/cache"
)

type point struct{ x, y byte }

func (p point) MarshalBinary() ([]byte, error) { return []byte{p.x, p.y}, nil }

func (p *point) UnmarshalBinary(b []byte) error {
	p.x, p.y = b[0], b[1]
	return nil
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	c := New(cache.Options{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Set(ctx, "s", "hello", 0))
	require.NoError(t, c.Set(ctx, "b", []byte("bytes"), 0))
	require.NoError(t, c.Set(ctx, "p", point{1, 2}, 0))

	var s string
	require.NoError(t, c.Get(ctx, "s", &s))
	assert.Equal(t, "hello", s)

	var b []byte
	require.NoError(t, c.Get(ctx, "b", &b))
	assert.Equal(t, []byte("bytes"), b)

	var p point
	require.NoError(t, c.Get(ctx, "p", &p))
	assert.Equal(t, point{1, 2}, p)
}

func TestGetMissing(t *testing.T) {
	var s string
	assert.ErrorIs(t, newCache(t).Get(context.Background(), "nope", &s), cache.ErrNotFound)
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	assert.ErrorIs(t, c.Set(ctx, "", "x", 0), cache.ErrInvalidKey)
	assert.ErrorIs(t, c.Set(ctx, "k", 42, 0), cache.ErrInvalidValue)

	require.NoError(t, c.Set(ctx, "k", "x", 0))
	var n int
	assert.ErrorIs(t, c.Get(ctx, "k", &n), cache.ErrInvalidValue)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))

	var s string
	require.NoError(t, c.Get(ctx, "k", &s))

	now = now.Add(time.Second)
	assert.ErrorIs(t, c.Get(ctx, "k", &s), cache.ErrNotFound)

	c.evictExpired()
	assert.Empty(t, c.items)
}

func TestDeleteClear(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))

	require.NoError(t, c.Delete(ctx, "a"))
	var s string
	assert.ErrorIs(t, c.Get(ctx, "a", &s), cache.ErrNotFound)
	require.NoError(t, c.Get(ctx, "b", &s))

	require.NoError(t, c.Clear(ctx))
	assert.ErrorIs(t, c.Get(ctx, "b", &s), cache.ErrNotFound)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	c := New(cache.Options{CleanupInterval: time.Millisecond})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Set(ctx, "k", "v", 0), cache.ErrClosed)
	var s string
	assert.ErrorIs(t, c.Get(ctx, "k", &s), cache.ErrClosed)
}
