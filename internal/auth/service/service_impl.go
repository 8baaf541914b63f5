package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/berair/internal/auth/domain"
	"github.com/smallbiznis/berair/internal/auth/password"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/ratelimit"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	UserRepo    userdomain.Repository
	Tokens      *TokenManager
	Revocations authdomain.RevocationStore
	Clock       clock.Clock
	Limiter     *ratelimit.LoginLimiter `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	userRepo    userdomain.Repository
	tokens      *TokenManager
	revocations authdomain.RevocationStore
	clock       clock.Clock
	limiter     *ratelimit.LoginLimiter
}

func New(p Params) authdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		userRepo:    p.UserRepo,
		tokens:      p.Tokens,
		revocations: p.Revocations,
		clock:       p.Clock,
		limiter:     p.Limiter,
	}
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	nik := strings.TrimSpace(req.NIK)
	if nik == "" || req.Password == "" {
		return nil, authdomain.ErrInvalidCredentials
	}

	if err := s.throttle(ctx, req.IPAddress, nik); err != nil {
		return nil, err
	}

	cred, err := s.userRepo.FindCredentialByNIK(ctx, s.db, nik)
	if err != nil {
		return nil, err
	}
	if cred == nil || !password.Verify(req.Password, cred.PasswordHash) {
		s.log.Info("login rejected", zap.String("nik", maskNIK(nik)))
		return nil, authdomain.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByID(ctx, s.db, cred.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.log.Info("login succeeded",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return &authdomain.LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAtTime(),
		User:      *userdomain.ToResponse(user),
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Parse(rawToken, s.clock.Now())
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return err
	}
	s.log.Info("logout", zap.String("user_id", claims.UserID))
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*authdomain.Claims, error) {
	claims, err := s.tokens.Parse(rawToken, s.clock.Now())
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.log.Warn("revocation lookup failed", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, authdomain.ErrTokenRevoked
	}

	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrInvalidToken
	}
	// Role changes take effect without waiting for the token to expire.
	claims.Role = string(user.Role)
	return claims, nil
}

func (s *Service) throttle(ctx context.Context, ip, nik string) error {
	if !s.limiter.Enabled() {
		return nil
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		res, err := s.limiter.AllowIP(ctx, ip)
		if err != nil {
			s.log.Warn("login rate limit check failed", zap.Error(err))
			return nil
		}
		if !res.Allowed {
			return authdomain.ErrTooManyAttempts
		}
	}
	res, err := s.limiter.AllowNIK(ctx, nik)
	if err != nil {
		s.log.Warn("login rate limit check failed", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return authdomain.ErrTooManyAttempts
	}
	return nil
}

func maskNIK(nik string) string {
	if len(nik) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(nik)-4) + nik[len(nik)-4:]
}
