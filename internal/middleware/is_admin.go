package middleware

import (
	"net/http"
	"time"

	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
)

// RequireCapability lets the request through only when the acting user holds
// capability at system level. Must run after AuthMiddleware.
func RequireCapability(caps host.Capabilities, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			actor := auth.GetActor(r.Context())
			if actor == nil {
				common.RespondError(w, start, constants.ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized, nil)
				return
			}

			ok, err := caps.HasCapability(r.Context(), capability, host.SystemContext(), actor.ID)
			if err != nil {
				logging.Error("Capability check failed", "capability", capability, "user_id", actor.ID, "error", err)
				common.RespondError(w, start, constants.ErrCodeInternal, constants.MsgUnexpected, http.StatusInternalServerError, nil)
				return
			}
			if !ok {
				common.RespondError(w, start, constants.ErrCodeAccessDenied, "Unauthorized. Need "+capability, http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsAdminMiddleware gates the management endpoints.
func IsAdminMiddleware(caps host.Capabilities) func(http.Handler) http.Handler {
	return RequireCapability(caps, constants.CapManage)
}
