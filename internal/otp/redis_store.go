package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix = "otp:challenge:v1:"
	phoneKeyPrefix     = "otp:phone:v1:"

	// Records are kept around past expiry so a late verify reports
	// "expired" rather than "not found".
	expiredRetention = time.Hour
)

type redisStore struct {
	cache *redis.Client
}

// NewRedisStore constructs a Redis-backed challenge store for multi-instance
// deployments. Expired records are evicted by key TTL, so PurgeExpired is a
// no-op here.
func NewRedisStore(cache *redis.Client) Store {
	return &redisStore{cache: cache}
}

func (s *redisStore) Save(ctx context.Context, ch Challenge) error {
	if priorID, err := s.cache.Get(ctx, phoneKeyPrefix+ch.Phone).Result(); err == nil {
		if prior, err := s.Find(ctx, priorID); err == nil && !prior.Consumed {
			prior.Superseded = true
			if err := s.Update(ctx, prior); err != nil {
				return fmt.Errorf("supersede prior challenge: %w", err)
			}
		}
	} else if err != redis.Nil {
		return fmt.Errorf("lookup prior challenge: %w", err)
	}

	ttl := time.Until(ch.ExpiresAt) + expiredRetention
	if err := s.set(ctx, ch, ttl); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, phoneKeyPrefix+ch.Phone, ch.CorrelationID, ttl).Err(); err != nil {
		return fmt.Errorf("index challenge by phone: %w", err)
	}
	return nil
}

func (s *redisStore) Find(ctx context.Context, correlationID string) (Challenge, error) {
	payload, err := s.cache.Get(ctx, challengeKeyPrefix+correlationID).Result()
	if err == redis.Nil {
		return Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return ch, nil
}

func (s *redisStore) Update(ctx context.Context, ch Challenge) error {
	return s.set(ctx, ch, redis.KeepTTL)
}

func (s *redisStore) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *redisStore) set(ctx context.Context, ch Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	if err := s.cache.Set(ctx, challengeKeyPrefix+ch.CorrelationID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}
