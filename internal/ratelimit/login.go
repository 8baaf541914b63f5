package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/berair/internal/config"
)

const (
	keyLoginIP  = "auth:login:ip:%s"
	keyLoginNIK = "auth:login:nik:%s"
)

// LoginLimiter throttles login attempts per client IP and per NIK.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLoginLimiter(cfg config.Config, client *redis.Client) *LoginLimiter {
	if client == nil || cfg.Redis.LoginRate <= 0 || cfg.Redis.LoginBurst <= 0 {
		return nil
	}
	return &LoginLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.Redis.LoginRate,
		burst:  cfg.Redis.LoginBurst,
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *LoginLimiter) AllowIP(ctx context.Context, ip string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginIP, strings.TrimSpace(ip)), l.rate, l.burst)
}

func (l *LoginLimiter) AllowNIK(ctx context.Context, nik string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginNIK, strings.TrimSpace(nik)), l.rate, l.burst)
}
