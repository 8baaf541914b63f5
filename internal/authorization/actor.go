package authorization

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/berair/internal/observability/context"
)

// Actor is the authenticated caller as carried by the session token.
type Actor struct {
	UserID snowflake.ID
	NIK    string
	Role   string
}

func (a Actor) Valid() bool {
	return a.UserID != 0 && strings.TrimSpace(a.Role) != ""
}

func (a Actor) subject() string {
	return "user:" + a.UserID.String()
}

func (a Actor) roleName() string {
	return "role:" + strings.ToLower(strings.TrimSpace(a.Role))
}

type actorKey struct{}

// WithActor stores the caller on the context and tags it for logging.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = obscontext.WithActor(ctx, actor.Role, actor.UserID.String())
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || !actor.Valid() {
		return Actor{}, false
	}
	return actor, true
}
