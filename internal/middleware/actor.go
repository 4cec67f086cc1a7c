package middleware

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	ActorContextKey contextKey = "actor"

	// ActorHeader carries the caller's identity. It is taken as given; the
	// service does not verify it.
	ActorHeader = "X-Actor-ID"

	// AnonymousActor is used when a request carries no identity.
	AnonymousActor = "anonymous"
)

// Actor puts the X-Actor-ID header value on the request context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActorFromContext returns the caller identity, or AnonymousActor.
func GetActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorContextKey).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
