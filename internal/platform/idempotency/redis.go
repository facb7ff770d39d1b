package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idem:"

// RedisStore keeps keys in Redis with native expiry. Used with the mongo driver when Redis
// is configured.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key string) string {
	return redisKeyPrefix + documentID(key)
}

func (s *RedisStore) Acquire(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	ttl = normaliseTTL(ttl)
	record := newInFlight(key, fingerprint, now.UTC(), ttl)
	payload, err := json.Marshal(record)
	if err != nil {
		return Claim{}, err
	}

	// A key can expire between SETNX and GET; one retry covers that window.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey(key), payload, ttl).Result()
		if err != nil {
			return Claim{}, fmt.Errorf("idempotency: acquire: %w", err)
		}
		if ok {
			return Claim{State: ClaimAcquired, Record: record}, nil
		}
		existing, found, err := s.get(ctx, key)
		if err != nil {
			return Claim{}, err
		}
		if found {
			return claimFor(existing, fingerprint)
		}
	}
	return Claim{State: ClaimInFlight, Record: record}, nil
}

func (s *RedisStore) get(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency: get: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode: %w", err)
	}
	return record, true, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	ttl = normaliseTTL(ttl)
	record, found, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if found && record.Fingerprint != fingerprint {
		return ErrKeyReused
	}
	if !found {
		record = Record{Key: key, Fingerprint: fingerprint}
	}
	payload, err := json.Marshal(completed(record, resp, now, ttl))
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	return nil
}

func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: abandon: %w", err)
	}
	return nil
}

func (s *RedisStore) Sweep(context.Context, time.Time, int) (int, error) {
	return 0, nil
}
