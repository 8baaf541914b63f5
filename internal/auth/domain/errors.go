package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrExpiredToken       = errors.New("token_expired")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrMissingSecret      = errors.New("auth jwt secret is required in production")
)
