// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session carried by a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	NIK    string `json:"nik"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// ExpiresAtTime returns the expiry or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
