package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute, nil), mr
}

func TestAsideCachesResult(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	calls := 0
	fetch := func(context.Context) ([]entry, error) {
		calls++
		return []entry{{Name: "go", Count: 3}}, nil
	}

	first, err := Aside(ctx, c, "tags:popular", fetch)
	require.NoError(t, err)
	second, err := Aside(ctx, c, "tags:popular", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("tags:popular"))

	mr.FastForward(2 * time.Minute)
	_, err = Aside(ctx, c, "tags:popular", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SetJSON(ctx, "k", entry{Name: "x"}))
	c.Invalidate(ctx, "k")
	assert.False(t, mr.Exists("k"))
}

func TestFetchErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	boom := errors.New("store down")

	_, err := Aside(ctx, c, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestDisabledCachePassesThrough(t *testing.T) {
	ctx := context.Background()
	c := Connect(ctx, "", time.Minute, nil)
	assert.False(t, c.Enabled())

	calls := 0
	for i := 0; i < 2; i++ {
		v, err := Aside(ctx, c, "k", func(context.Context) (int, error) { calls++; return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 2, calls)
}

func TestBrokenRedisDegrades(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	v, err := Aside(ctx, c, "k", func(context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}
