package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/berair/internal/auth/domain"
	"github.com/smallbiznis/berair/internal/authorization"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	contextUserIDKey = "user_id"
	contextTokenKey  = "auth_token"
)

// AuthRequired resolves the bearer token into an actor on the request
// context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authorization.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("enduser.role", actor.Role))

		c.Set(contextUserIDKey, actor.UserID.String())
		c.Set(contextTokenKey, raw)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authzSvc.Authorize(c.Request.Context(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	if c == nil || c.Request == nil {
		return authorization.Actor{}, false
	}
	return authorization.ActorFromContext(c.Request.Context())
}

func actorFromClaims(claims *authdomain.Claims) (authorization.Actor, error) {
	if claims == nil {
		return authorization.Actor{}, ErrUnauthorized
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(claims.UserID))
	if err != nil || userID == 0 {
		return authorization.Actor{}, authdomain.ErrInvalidToken
	}
	actor := authorization.Actor{
		UserID: userID,
		NIK:    claims.NIK,
		Role:   claims.Role,
	}
	if !actor.Valid() {
		return authorization.Actor{}, authdomain.ErrInvalidToken
	}
	return actor, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
