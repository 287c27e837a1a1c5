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

type cachedPost struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			*dest = cachedPost{ID: 7, Content: "hello"}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey(7), &first, PostTTL, fetch(&first)))
	assert.Equal(t, "hello", first.Content)
	assert.True(t, mr.Exists("post:7"))

	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey(7), &second, PostTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	var dest cachedPost
	err := Aside(context.Background(), PostKey(1), &dest, PostTTL, func() error {
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("post:1"))
}

func TestAside_WithoutRedisCallsFetch(t *testing.T) {
	SetClient(nil)

	var dest cachedPost
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidatePost(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey(3), cachedPost{ID: 3}, time.Minute))
	InvalidatePost(ctx, 3)
	assert.False(t, mr.Exists("post:3"))

	found, err := GetJSON(ctx, PostKey(3), &cachedPost{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInitRedis_UnreachableFallsBackToNil(t *testing.T) {
	assert.Nil(t, InitRedis("redis://127.0.0.1:1/0"))
	assert.Nil(t, GetClient())
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = parseOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = parseOptions("  ")
	assert.Error(t, err)
	_, err = parseOptions("redis://cache:6379/notadb")
	assert.Error(t, err)
}

func TestInitRedis_ConnectsToLiveServer(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { _ = Close() })

	rdb := InitRedis(mr.Addr())
	require.NotNil(t, rdb)
	assert.Same(t, rdb, GetClient())
}

func TestInvalidate_MultipleKeys(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(UserKey(1), "{}"))
	require.NoError(t, mr.Set(UserKey(2), "{}"))

	Invalidate(ctx, UserKey(1), UserKey(2))
	assert.False(t, mr.Exists("user:1"))
	assert.False(t, mr.Exists("user:2"))
}

func TestKeyFamily(t *testing.T) {
	assert.Equal(t, "post", keyFamily("post:12"))
	assert.Equal(t, "plain", keyFamily("plain"))
}
