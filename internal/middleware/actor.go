package middleware

import (
	"net/http"
	"strings"

	"partstream/fitment-engine/internal/auth"
)

// ActorMiddleware resolves the acting user for audit attribution: a bearer
// token from the admin app, or the X-User-Id header for trusted internal
// callers. Requests with no resolvable identity are rejected — every
// mutation must be attributable.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var actorID string

		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			id, err := auth.ActorFromBearer(h)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}
			actorID = id
		} else if h := r.Header.Get("X-User-Id"); h != "" {
			actorID = h
		}

		if actorID == "" {
			http.Error(w, "Unauthorized: no actor identity", http.StatusUnauthorized)
			return
		}

		ctx := auth.SetActorID(r.Context(), actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
