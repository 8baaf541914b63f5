package authorization

import "context"

// Service gates an action on an object for the actor found on ctx.
type Service interface {
	Authorize(ctx context.Context, object string, action string) error
}
