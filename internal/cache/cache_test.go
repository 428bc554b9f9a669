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

type view struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := GetClient()
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(prev) })
	return mr
}

func TestViewKey(t *testing.T) {
	assert.Equal(t, "view:/", ViewKey("/"))
	assert.Equal(t, "view:/IronLegion/status/3", ViewKey("/IronLegion/status/3"))
}

func TestAside_FetchesOnceThenServesCache(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *view) func() error {
		return func() error {
			calls++
			*dest = view{Path: "/", Count: calls}
			return nil
		}
	}

	var first view
	require.NoError(t, Aside(ctx, ViewKey("/"), &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, first.Count)
	assert.True(t, mr.Exists("view:/"))

	var second view
	require.NoError(t, Aside(ctx, ViewKey("/"), &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)

	var third view
	require.NoError(t, Aside(ctx, ViewKey("/"), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, third.Count)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("db down")

	var v view
	err := Aside(context.Background(), ViewKey("/x"), &v, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("view:/x"))
}

func TestAside_CorruptEntryRefetches(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("view:/bad", "{not json"))

	var v view
	err := Aside(context.Background(), ViewKey("/bad"), &v, time.Minute, func() error {
		v = view{Path: "/bad", Count: 7}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v.Count)

	got, err := mr.Get("view:/bad")
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/bad","count":7}`, got)
}

func TestAside_NoClient(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })

	called := false
	require.NoError(t, Aside(context.Background(), "k", &view{}, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	Invalidate(context.Background(), "k")
}

func TestInvalidate(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("view:/", "1"))
	require.NoError(t, mr.Set("view:/settings", "1"))

	Invalidate(context.Background(), ViewKey("/"), ViewKey("/settings"))
	assert.False(t, mr.Exists("view:/"))
	assert.False(t, mr.Exists("view:/settings"))
}

func TestInitRedis_UnreachableLeavesNilClient(t *testing.T) {
	prev := GetClient()
	t.Cleanup(func() { SetClient(prev) })

	InitRedis("127.0.0.1:1")
	assert.Nil(t, GetClient())

	InitRedis("redis://%%bad")
	assert.Nil(t, GetClient())
}

func TestInitRedis_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := GetClient()
	t.Cleanup(func() { SetClient(prev) })

	InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, GetClient())
	assert.NoError(t, GetClient().Ping(context.Background()).Err())
}
