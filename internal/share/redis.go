package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"gilda/internal/contextutil"
)

const keyPrefix = "share:"

func recordKey(id string) string { return keyPrefix + id }
func hitsKey(id string) string   { return keyPrefix + id + ":hits" }
func lastKey(id string) string   { return keyPrefix + id + ":last" }

// NewRedisClient creates a Redis client. Connections are opened on first use;
// call RedisStore.Ping to verify the server is reachable.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisStore implements Store on Redis. A record lives under share:<id> as JSON;
// share:<id>:hits and share:<id>:last expire with it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a share store. ttl must be positive.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores a new record.
func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	logger := contextutil.LoggerFromContext(ctx)

	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	if rec.BrandColor == "" {
		rec.BrandColor = DefaultBrandColor
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode share: %w", err)
	}

	ok, err := s.client.SetNX(ctx, recordKey(rec.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store share: %w", err)
	}
	if !ok {
		return fmt.Errorf("share id collision: %s", rec.ID)
	}

	logger.InfoContext(ctx, "share created", "share_id", rec.ID, "owner_id", rec.OwnerID, "documents", len(rec.Documents), "ttl", s.ttl)
	return nil
}

// Get loads a record.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode share %s: %w", id, err)
	}
	return &rec, nil
}

// RecordAccess increments the hit counter and sets the last access time, giving
// both keys the record's remaining TTL.
func (s *RedisStore) RecordAccess(ctx context.Context, id string) (Access, error) {
	ttl, err := s.client.PTTL(ctx, recordKey(id)).Result()
	if err != nil {
		return Access{}, fmt.Errorf("failed to read share ttl: %w", err)
	}
	if ttl == -2 {
		return Access{}, ErrNotFound
	}
	if ttl < 0 {
		ttl = 0 // record without expiry
	}

	now := time.Now().UTC()
	var hits *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, hitsKey(id))
		if ttl > 0 {
			pipe.PExpire(ctx, hitsKey(id), ttl)
		}
		pipe.Set(ctx, lastKey(id), now.Format(time.RFC3339Nano), ttl)
		return nil
	})
	if err != nil {
		return Access{}, fmt.Errorf("failed to record share access: %w", err)
	}
	return Access{Hits: hits.Val(), LastAccess: now}, nil
}

// Delete removes the record and its counters.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, recordKey(id), hitsKey(id), lastKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
