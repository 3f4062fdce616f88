package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/watchlist-backend/api/responses"
	"github.com/angelmondragon/watchlist-backend/api/validators"
	"github.com/angelmondragon/watchlist-backend/internal/access"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
)

// Guard runs the access chain for policy and seeds the request context with
// the authenticated principal.
func Guard(guard *access.Guard, policy access.Policy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := validators.BearerToken(r.Header.Get("Authorization"))

			principal, err := guard.Check(r.Context(), policy, access.Request{
				Token: token,
				Param: func(name string) string { return chi.URLParam(r, name) },
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := access.WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.ID)
				ctx = logg.WithActorRole(ctx, principal.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
