package authz

import "context"

type ctxKey string

const actorKey ctxKey = "clinic.actor"

// WithActor stores the authenticated actor in context. Only the HTTP edge
// should use this; services receive the actor as an argument.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.UserID != ""
}
