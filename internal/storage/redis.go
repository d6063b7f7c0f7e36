package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	banKeyPrefix     = "ban:"
	revokedKeyPrefix = "revoked:"
)

// BanUser встановлює бан у Redis. ttl == 0 означає безстроковий бан.
func (s *Service) BanUser(ctx context.Context, userID string, ttl time.Duration) error {
	return s.Redis.Set(ctx, banKeyPrefix+userID, "banned", ttl).Err()
}

func (s *Service) UnbanUser(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, banKeyPrefix+userID).Err()
}

// IsUserBanned перевіряє статус бану в Redis
func (s *Service) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	return s.exists(ctx, banKeyPrefix+userID)
}

// RevokeToken blacklists a token id until it would have expired anyway.
func (s *Service) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.Redis.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (s *Service) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.exists(ctx, revokedKeyPrefix+tokenID)
}

func (s *Service) exists(ctx context.Context, key string) (bool, error) {
	val, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val != "", nil
}
