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

type cachedThing struct {
	Name string `json:"name"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := GetClient()
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(prev) })
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0

	load := func() (cachedThing, error) {
		var v cachedThing
		err := Aside(ctx, ProfileKey("u1"), &v, ProfileTTL, func() error {
			calls++
			v = cachedThing{Name: "Asha"}
			return nil
		})
		return v, err
	}

	first, err := load()
	require.NoError(t, err)
	second, err := load()
	require.NoError(t, err)

	assert.Equal(t, "Asha", first.Name)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ProfileTTL, mr.TTL("profile:u1"))
}

func TestAside_DoesNotCacheErrors(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var v cachedThing
	err := Aside(context.Background(), FeedRecentKey, &v, FeedTTL, func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(FeedRecentKey))
}

func TestAside_RefillsCorruptEntry(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set(PostKey("p1"), "{not json"))

	var v cachedThing
	err := Aside(context.Background(), PostKey("p1"), &v, PostTTL, func() error {
		v = cachedThing{Name: "fresh"}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Name)
	got, _ := mr.Get(PostKey("p1"))
	assert.JSONEq(t, `{"name":"fresh"}`, got)
}

func TestAside_NoClientFallsThrough(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	defer SetClient(prev)

	called := false
	var v cachedThing
	err := Aside(context.Background(), "k", &v, time.Second, func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestInvalidateProfile(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set(ProfileKey("u2"), "{}"))

	InvalidateProfile(context.Background(), "u2")

	assert.False(t, mr.Exists(ProfileKey("u2")))
}
