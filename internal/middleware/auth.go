package middleware

import (
	"net/http"
	"strings"
	"time"

	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
)

// AuthMiddleware resolves the bearer token to the acting user.
func AuthMiddleware(tokens *auth.TokenService, users host.Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				common.RespondError(w, start, constants.ErrCodeUnauthorized, "Unauthorized. Missing bearer token", http.StatusUnauthorized, nil)
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				logging.Debug("Rejected token", "request_id", auth.GetRequestID(r.Context()), "error", err)
				common.RespondError(w, start, constants.ErrCodeUnauthorized, "Unauthorized. Invalid token", http.StatusUnauthorized, nil)
				return
			}

			actor, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				logging.Error("Failed to load acting user", "user_id", claims.UserID, "error", err)
				common.RespondError(w, start, constants.ErrCodeInternal, constants.MsgUnexpected, http.StatusInternalServerError, nil)
				return
			}
			if actor == nil {
				common.RespondError(w, start, constants.ErrCodeUnauthorized, "Unauthorized. Unknown user", http.StatusUnauthorized, nil)
				return
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			ctx = auth.SetActor(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
