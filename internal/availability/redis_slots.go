package availability

import (
	"context"
	"strconv"
	"time"

	apperrors "repair-recommender/internal/common/errors"
	"repair-recommender/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "availability:"

	fieldSameDay    = "same_day"
	fieldNextDay    = "next_day"
	fieldWithinWeek = "within_week"
)

// RedisSlots reads availability published by a booking system into a hash
// per repairer. Repairers without a hash are answered by the fallback.
type RedisSlots struct {
	client   redis.Cmdable
	prefix   string
	fallback Provider
}

func NewRedisSlots(client redis.Cmdable, prefix string, fallback Provider) *RedisSlots {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if fallback == nil {
		fallback = NewStatic(models.Availability{}, nil)
	}
	return &RedisSlots{client: client, prefix: prefix, fallback: fallback}
}

func (r *RedisSlots) key(repairerID string) string {
	return r.prefix + repairerID
}

func (r *RedisSlots) Availability(ctx context.Context, repairer models.RepairerProfile) (models.Availability, error) {
	fields, err := r.client.HGetAll(ctx, r.key(repairer.ID)).Result()
	if err != nil {
		return models.Availability{}, apperrors.NewAvailabilityLookupError(repairer.ID, err)
	}
	if len(fields) == 0 {
		return r.fallback.Availability(ctx, repairer)
	}

	return models.Availability{
		SameDay:    parseFlag(fields[fieldSameDay]),
		NextDay:    parseFlag(fields[fieldNextDay]),
		WithinWeek: parseFlag(fields[fieldWithinWeek]),
	}, nil
}

// Publish stores flags for a repairer. A zero ttl keeps them until overwritten.
func (r *RedisSlots) Publish(ctx context.Context, repairerID string, a models.Availability, ttl time.Duration) error {
	key := r.key(repairerID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldSameDay, strconv.FormatBool(a.SameDay),
		fieldNextDay, strconv.FormatBool(a.NextDay),
		fieldWithinWeek, strconv.FormatBool(a.WithinWeek),
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
