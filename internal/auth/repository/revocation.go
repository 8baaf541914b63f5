package repository

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	authdomain "github.com/smallbiznis/berair/internal/auth/domain"
)

const keyRevokedToken = "auth:revoked:"

type redisRevocations struct {
	client *redis.Client
}

type noopRevocations struct{}

// ProvideRevocations stores revoked token ids in Redis. Without Redis,
// logout only drops the token client side.
func ProvideRevocations(client *redis.Client) authdomain.RevocationStore {
	if client == nil {
		return noopRevocations{}
	}
	return &redisRevocations{client: client}
}

func (r *redisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, keyRevokedToken+tokenID, "1", ttl).Err()
}

func (r *redisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyRevokedToken+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (noopRevocations) Revoke(context.Context, string, time.Time) error { return nil }

func (noopRevocations) IsRevoked(context.Context, string) (bool, error) { return false, nil }
