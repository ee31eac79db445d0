package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// RedisOTPStore keeps one bcrypt-hashed OTP per identity under
// otp:<role>:<id>. SET replaces any earlier code and sets the expiry in a
// single command, so a verify never observes a gap between purge and insert.
type RedisOTPStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisOTPStore(rdb *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb, prefix: "otp"}
}

func (s *RedisOTPStore) key(role model.Role, id string) string {
	return s.prefix + ":" + string(role) + ":" + id
}

func (s *RedisOTPStore) Replace(ctx context.Context, role model.Role, identityID, hash string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(role, identityID), hash, ttl).Err()
}

func (s *RedisOTPStore) Get(ctx context.Context, role model.Role, identityID string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(role, identityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisOTPStore) Delete(ctx context.Context, role model.Role, identityID string) error {
	return s.rdb.Del(ctx, s.key(role, identityID)).Err()
}
