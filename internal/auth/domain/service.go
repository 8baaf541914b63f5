package domain

import (
	"context"
	"time"

	userdomain "github.com/smallbiznis/berair/internal/user/domain"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Claims, error)
}

type LoginRequest struct {
	NIK       string `json:"nik"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	Token     string              `json:"token"`
	TokenType string              `json:"token_type"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      userdomain.Response `json:"user"`
}
