package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "dir:fantravel", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("b"), 0))

	v, ok, err := m.Get(ctx, "dir:fantravel")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, "dir:fantravel")
	assert.False(t, ok, "expired entry must be gone")

	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)

	_, ok, _ = m.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemory_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	src := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", src, 0))
	src[0] = 'x'
	v, _, _ := m.Get(ctx, "k")
	v[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	_, ok, err := r.Get(ctx, "feed")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "feed", []byte("csv"), time.Hour))
	v, ok, err := r.Get(ctx, "feed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "csv", string(v))
	assert.True(t, mr.Exists(keyPrefix+"feed"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = r.Get(ctx, "feed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedis(addr, "", 0)
	assert.Error(t, err)
}
