package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Static
// ==========================

func TestStatic(t *testing.T) {
	p := NewStatic(
		models.Availability{WithinWeek: true},
		map[string]models.Availability{"r-1": {SameDay: true, NextDay: true, WithinWeek: true}},
	)

	a, err := p.Availability(context.Background(), models.RepairerProfile{ID: "r-1"})
	require.NoError(t, err)
	assert.True(t, a.SameDay)

	a, err = p.Availability(context.Background(), models.RepairerProfile{ID: "r-2"})
	require.NoError(t, err)
	assert.Equal(t, models.Availability{WithinWeek: true}, a)
}

// ==========================
// OpeningHours
// ==========================

func TestOpeningHours(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Wednesday 2024-03-13 14:30 in Paris.
	wednesday := time.Date(2024, 3, 13, 14, 30, 0, 0, paris)

	tests := []struct {
		name  string
		hours models.OpeningHours
		lead  time.Duration
		want  models.Availability
	}{
		{
			name:  "open this afternoon and tomorrow",
			hours: models.OpeningHours{"wednesday": {"09:00-12:00", "14:00-19:00"}, "thursday": {"09:00-19:00"}},
			want:  models.Availability{SameDay: true, NextDay: true, WithinWeek: true},
		},
		{
			name:  "closed for today already",
			hours: models.OpeningHours{"wednesday": {"09:00-12:00"}, "friday": {"09:00-19:00"}},
			want:  models.Availability{WithinWeek: true},
		},
		{
			name:  "lead time leaves no room today",
			hours: models.OpeningHours{"wednesday": {"09:00-15:00"}},
			lead:  time.Hour,
			want:  models.Availability{},
		},
		{
			name:  "only tomorrow",
			hours: models.OpeningHours{"thursday": {"10:00-18:00"}},
			want:  models.Availability{NextDay: true, WithinWeek: true},
		},
		{
			name:  "next tuesday",
			hours: models.OpeningHours{"tuesday": {"10:00-18:00"}},
			want:  models.Availability{WithinWeek: true},
		},
		{
			name:  "malformed intervals ignored",
			hours: models.OpeningHours{"wednesday": {"all day", "18:00-09:00"}, "thursday": {"9h-18h"}},
			want:  models.Availability{},
		},
		{
			name: "no schedule",
			want: models.Availability{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOpeningHours(paris,
				WithClock(func() time.Time { return wednesday }),
				WithMinLead(tt.lead),
			)
			got, err := p.Availability(context.Background(), models.RepairerProfile{ID: "r", OpeningHours: tt.hours})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpeningHours_UsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 23:30 UTC on Tuesday is already Wednesday morning in Tokyo.
	now := time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC)
	p := NewOpeningHours(tokyo, WithClock(func() time.Time { return now }))

	got, err := p.Availability(context.Background(), models.RepairerProfile{
		OpeningHours: models.OpeningHours{"wednesday": {"10:00-18:00"}},
	})
	require.NoError(t, err)
	assert.True(t, got.SameDay)
	assert.False(t, got.NextDay)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

// ==========================
// RedisSlots
// ==========================

func TestRedisSlots_PublishedFlags(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisSlots(client, "", nil)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "r-1", models.Availability{SameDay: true, WithinWeek: true}, time.Hour))

	got, err := p.Availability(ctx, models.RepairerProfile{ID: "r-1"})
	require.NoError(t, err)
	assert.Equal(t, models.Availability{SameDay: true, WithinWeek: true}, got)
	assert.True(t, mr.Exists("availability:r-1"))
	assert.Equal(t, time.Hour, mr.TTL("availability:r-1"))
}

func TestRedisSlots_FallsBackWhenMissing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fallback := NewStatic(models.Availability{NextDay: true}, nil)
	p := NewRedisSlots(client, "slots:", fallback)

	got, err := p.Availability(context.Background(), models.RepairerProfile{ID: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, models.Availability{NextDay: true}, got)
}

func TestRedisSlots_LookupError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("availability:r-1").SetErr(errors.New("connection refused"))

	p := NewRedisSlots(db, "", nil)
	_, err := p.Availability(context.Background(), models.RepairerProfile{ID: "r-1"})
	require.Error(t, err)

	se, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAvailabilityLookup, se.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(_ context.Context, r models.RepairerProfile) (models.Availability, error) {
		return models.Availability{SameDay: r.ID == "fast"}, nil
	})
	got, err := p.Availability(context.Background(), models.RepairerProfile{ID: "fast"})
	require.NoError(t, err)
	assert.True(t, got.SameDay)
}
