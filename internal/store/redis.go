package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/game"
)

// updatedIndexKey is a sorted set of record ids scored by updated_at (unix ms).
const updatedIndexKey = "match:updated"

// Redis keeps each record as a JSON string plus a sorted-set index used for
// retention cleanup.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis creates a client and tests the connection
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisWithClient(client, cfg.KeyTTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

// recordKey returns the Redis key for a match record
func recordKey(id string) string {
	return fmt.Sprintf("match:%s:state", id)
}

// Upsert writes the record and refreshes its index score
func (r *Redis) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.UpdatedAt = r.now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, recordKey(rec.ID), data, r.ttl)
	pipe.ZAdd(ctx, updatedIndexKey, redis.Z{
		Score:  float64(rec.UpdatedAt.UnixMilli()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upserting %s: %w", rec.ID, err)
	}
	return nil
}

// Get reads a record by id
func (r *Redis) Get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", id, err)
	}
	return &rec, nil
}

// CodeExists checks both seats of the code
func (r *Redis) CodeExists(ctx context.Context, code int) (bool, error) {
	n, err := r.client.Exists(ctx,
		recordKey(MatchID(code, game.RoleHost)),
		recordKey(MatchID(code, game.RoleGuest)),
	).Result()
	if err != nil {
		return false, fmt.Errorf("checking code %d: %w", code, err)
	}
	return n > 0, nil
}

// DeleteOlderThan removes records whose index score is before cutoff
func (r *Redis) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	ids, err := r.client.ZRangeByScore(ctx, updatedIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: upper,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("listing old matches: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
		members[i] = id
	}

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, updatedIndexKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("deleting old matches: %w", err)
	}
	return del.Val(), nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
