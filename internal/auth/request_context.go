package auth

import "context"

type contextKey string

var actorIDKey contextKey = "actor_id"

// SetActorID stores the acting-user identity for audit attribution.
func SetActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// GetActorID returns the acting-user identity, or "" when unauthenticated.
func GetActorID(ctx context.Context) string {
	if id, ok := ctx.Value(actorIDKey).(string); ok {
		return id
	}
	return ""
}
