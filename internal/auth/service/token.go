package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/berair/internal/auth/domain"
	"github.com/smallbiznis/berair/internal/config"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"go.uber.org/zap"
)

const defaultTokenTTL = 12 * time.Hour

// TokenManager signs and parses HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager requires AUTH_JWT_SECRET in production. Outside production
// an ephemeral secret is generated so tokens die with the process.
func NewTokenManager(cfg config.Config, log *zap.Logger) (*TokenManager, error) {
	secret := []byte(strings.TrimSpace(cfg.AuthJWTSecret))
	if len(secret) == 0 {
		if cfg.IsProduction() {
			return nil, authdomain.ErrMissingSecret
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		if log != nil {
			log.Warn("AUTH_JWT_SECRET not set, using ephemeral signing key")
		}
	}

	ttl := cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.AuthJWTIssuer)
	if issuer == "" {
		issuer = "berair"
	}
	return &TokenManager{secret: secret, issuer: issuer, ttl: ttl}, nil
}

func (m *TokenManager) Issue(user *userdomain.User, now time.Time) (string, *authdomain.Claims, error) {
	claims := &authdomain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: user.ID.String(),
		NIK:    user.NIK,
		Name:   user.Name,
		Role:   string(user.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (m *TokenManager) Parse(raw string, now time.Time) (*authdomain.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, authdomain.ErrInvalidToken
	}

	claims := &authdomain.Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authdomain.ErrExpiredToken
		}
		return nil, authdomain.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, authdomain.ErrInvalidToken
	}
	return claims, nil
}
