package cache_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/coffeemap/internal/cache"
)

type shop struct {
	PlaceID string  `json:"placeId"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
}

var fixedNow = time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.NewCache(client, log,
		cache.WithClock(func() time.Time { return fixedNow }),
		cache.WithOpTimeout(500*time.Millisecond),
	)
	return c, mr
}

func sampleShops() []shop {
	return []shop{
		{PlaceID: "ChIJ1", Name: "Kopi Kenangan", Rating: 4.5},
		{PlaceID: "ChIJ2", Name: "Janji Jiwa", Rating: 4.1},
	}
}

func TestCache_SetAndGet_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	data := sampleShops()
	cache.Set(ctx, c, "coffee-shops", "samarinda", data, time.Hour)

	res := cache.Get[[]shop](ctx, c, "coffee-shops", "samarinda")
	require.Equal(t, cache.StatusHit, res.Status)
	got, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, data, got)
	assert.True(t, fixedNow.Equal(res.StoredAt), "stored-at should come from the envelope timestamp")
}

func TestCache_StoredEnvelopeShape(t *testing.T) {
	c, mr := newTestCache(t)

	cache.Set(context.Background(), c, "shop-detail", "ChIJ1", shop{PlaceID: "ChIJ1", Name: "Kopi"}, 0)

	raw, err := mr.Get("shop-detail:ChIJ1")
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Contains(t, env, "data")
	assert.JSONEq(t, `1791966600000`, string(env["timestamp"]))
	assert.JSONEq(t, `{"placeId":"ChIJ1","name":"Kopi","rating":0}`, string(env["data"]))

	// ttl 0 means no expiry
	assert.Zero(t, mr.TTL("shop-detail:ChIJ1"))
}

func TestCache_Get_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	res := cache.Get[[]shop](context.Background(), c, "coffee-shops", "nowhere")
	assert.Equal(t, cache.StatusMiss, res.Status)
	assert.NoError(t, res.Err)
	_, ok := res.Value()
	assert.False(t, ok)
}

func TestCache_Namespaces_AreIndependent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, c, "coffee-shops", "k", sampleShops(), time.Hour)

	res := cache.Get[[]shop](ctx, c, "shop-detail", "k")
	assert.Equal(t, cache.StatusMiss, res.Status)
}

func TestCache_Overwrite_ReplacesWholesale(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, c, "coffee-shops", "k", sampleShops(), time.Hour)
	cache.Set(ctx, c, "coffee-shops", "k", []shop{{PlaceID: "ChIJ9", Name: "Only One"}}, time.Hour)

	got, ok := cache.Get[[]shop](ctx, c, "coffee-shops", "k").Value()
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "ChIJ9", got[0].PlaceID)
}

func TestCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, c, "coffee-shops", "k", sampleShops(), time.Hour)
	assert.Equal(t, time.Hour, mr.TTL("coffee-shops:k"))

	mr.FastForward(2 * time.Hour)

	res := cache.Get[[]shop](ctx, c, "coffee-shops", "k")
	assert.Equal(t, cache.StatusMiss, res.Status, "entry should be expired after TTL")
}

func TestCache_Get_CorruptPayload_Unavailable(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("coffee-shops:k", "{not json"))

	res := cache.Get[[]shop](context.Background(), c, "coffee-shops", "k")
	assert.Equal(t, cache.StatusUnavailable, res.Status)
	assert.ErrorIs(t, res.Err, cache.ErrUnavailable)
	_, ok := res.Value()
	assert.False(t, ok)
}

func TestCache_StoreDown_FailsOpen(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.SetError("ERR store down")

	assert.NotPanics(t, func() {
		cache.Set(ctx, c, "coffee-shops", "k", sampleShops(), time.Hour)
	})

	res := cache.Get[[]shop](ctx, c, "coffee-shops", "k")
	assert.Equal(t, cache.StatusUnavailable, res.Status)
	assert.ErrorIs(t, res.Err, cache.ErrUnavailable)
}

func TestCache_Ping(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url", time.Second)
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost:19999")
}

func TestConnect_AppliesOpTimeout(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr(), 750*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 750*time.Millisecond, client.Options().ReadTimeout)
	assert.Equal(t, 750*time.Millisecond, client.Options().WriteTimeout)
}
