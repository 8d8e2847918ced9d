package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-recommender/internal/common/logger"
	"repair-recommender/internal/geo"
	"repair-recommender/internal/models"
)

var parisQuery = Query{Center: geo.Point{Lat: 48.8566, Lng: 2.3522}, RadiusKm: 10}

func countingDirectory(calls *int32, repairers ...models.RepairerProfile) Directory {
	return Func(func(context.Context, Query) ([]models.RepairerProfile, error) {
		atomic.AddInt32(calls, 1)
		return repairers, nil
	})
}

// ==========================
// Cached
// ==========================

func TestCached_ReadThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	rep := models.RepairerProfile{ID: "rep-1", Name: "Atelier", Latitude: 48.86, Longitude: 2.33, Rating: 4.2,
		Specialties: []string{"écran"}, PriceRanges: map[string]models.PriceRange{}}
	cached := NewCached(countingDirectory(&calls, rep), client, time.Minute, "", logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := cached.ActiveRepairers(ctx, parisQuery)
	require.NoError(t, err)
	second, err := cached.ActiveRepairers(ctx, parisQuery)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)

	key := DefaultCacheKeyPrefix + parisQuery.key()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// A nearby centre rounds to the same key.
	nearby := parisQuery
	nearby.Center.Lat += 0.00001
	_, err = cached.ActiveRepairers(ctx, nearby)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	mr.FastForward(2 * time.Minute)
	_, err = cached.ActiveRepairers(ctx, parisQuery)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCached_UnreadableEntryIsRefetched(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	key := DefaultCacheKeyPrefix + parisQuery.key()
	require.NoError(t, mr.Set(key, "{not json"))

	var calls int32
	cached := NewCached(countingDirectory(&calls, models.RepairerProfile{ID: "rep-1"}), client, time.Minute, "", logger.NewTestLogger(t))

	got, err := cached.ActiveRepairers(context.Background(), parisQuery)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, stored, `"rep-1"`)
}

func TestCached_CacheDownReadsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := DefaultCacheKeyPrefix + parisQuery.key()
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))

	var calls int32
	cached := NewCached(countingDirectory(&calls, models.RepairerProfile{ID: "rep-1"}), db, time.Minute, "", logger.NewTestLogger(t))

	got, err := cached.ActiveRepairers(context.Background(), parisQuery)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_DirectoryErrorIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	failing := Func(func(context.Context, Query) ([]models.RepairerProfile, error) {
		return nil, errors.New("down")
	})
	cached := NewCached(failing, client, time.Minute, "cache:", logger.NewNoOpLogger())

	_, err = cached.ActiveRepairers(context.Background(), parisQuery)
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCached_Invalidate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	cached := NewCached(countingDirectory(&calls), client, time.Minute, "", logger.NewNoOpLogger())
	ctx := context.Background()

	_, err = cached.ActiveRepairers(ctx, parisQuery)
	require.NoError(t, err)
	_, err = cached.ActiveRepairers(ctx, Query{Center: geo.Point{Lat: 45.76, Lng: 4.83}, RadiusKm: 5})
	require.NoError(t, err)
	require.NoError(t, mr.Set("unrelated", "x"))

	removed, err := cached.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"unrelated"}, mr.Keys())
}

// ==========================
// Shared
// ==========================

func TestShared_CollapsesConcurrentReads(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	slow := Func(func(context.Context, Query) ([]models.RepairerProfile, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []models.RepairerProfile{{ID: "rep-1"}}, nil
	})
	shared := NewShared(slow)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]models.RepairerProfile, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := shared.ActiveRepairers(context.Background(), parisQuery)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, got := range results {
		require.Len(t, got, 1)
		assert.Equal(t, "rep-1", got[0].ID)
	}
}

func TestShared_CallerStopsWaitingOnCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	blocked := Func(func(context.Context, Query) ([]models.RepairerProfile, error) {
		<-release
		return nil, nil
	})
	shared := NewShared(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := shared.ActiveRepairers(ctx, parisQuery)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShared_PropagatesErrors(t *testing.T) {
	shared := NewShared(Func(func(context.Context, Query) ([]models.RepairerProfile, error) {
		return nil, errors.New("down")
	}))

	_, err := shared.ActiveRepairers(context.Background(), parisQuery)
	assert.EqualError(t, err, "down")
}

// ==========================
// Shared keys
// ==========================

func TestQueriesSharingAKeyKeepNearbyRepairers(t *testing.T) {
	a := Query{Center: geo.Point{Lat: 48.0, Lng: 2.000051}, RadiusKm: 0.1}
	b := Query{Center: geo.Point{Lat: 48.0, Lng: 2.000149}, RadiusKm: 0.1}
	require.Equal(t, a.key(), b.key())

	near := models.RepairerProfile{ID: "rep-near", Latitude: 48.0, Longitude: 2.00149}
	require.Less(t, geo.Distance(b.Center, geo.Point{Lat: near.Latitude, Lng: near.Longitude}), b.RadiusKm)
	file := NewFile([]models.RepairerProfile{near})

	ids := func(rs []models.RepairerProfile) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	t.Run("cached", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		cached := NewCached(file, client, time.Minute, "", logger.NewNoOpLogger())
		ctx := context.Background()

		_, err := cached.ActiveRepairers(ctx, a)
		require.NoError(t, err)
		got, err := cached.ActiveRepairers(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []string{"rep-near"}, ids(got))
	})

	t.Run("shared", func(t *testing.T) {
		var seen Query
		shared := NewShared(Func(func(ctx context.Context, q Query) ([]models.RepairerProfile, error) {
			seen = q
			return file.ActiveRepairers(ctx, q)
		}))
		got, err := shared.ActiveRepairers(context.Background(), a)
		require.NoError(t, err)
		assert.Equal(t, []string{"rep-near"}, ids(got))
		assert.Equal(t, a.key(), seen.key())
	})
}

func TestQueryCanonical(t *testing.T) {
	q := Query{Center: geo.Point{Lat: 48.85664, Lng: 2.35216}, RadiusKm: 0.3}
	c := q.canonical()
	assert.Equal(t, geo.Point{Lat: 48.8566, Lng: 2.3522}, c.Center)
	assert.InDelta(t, 0.3, c.RadiusKm, 1e-9)
	assert.Equal(t, c, c.canonical())

	assert.InDelta(t, 0.101, Query{RadiusKm: 0.1004}.canonical().RadiusKm, 1e-9)
	assert.Zero(t, Query{Center: q.Center}.canonical().RadiusKm)
}
