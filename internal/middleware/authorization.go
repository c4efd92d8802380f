package middleware

import (
	"net/http"

	"storefront/internal/authz"

	"go.uber.org/zap"
)

// RequireAction rejects callers the authorization policy does not allow to
// perform action on an ownerless resource. Must run after AuthMiddleware.
func RequireAction(action authz.Action, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				logger.Warn("Principal not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if err := authz.Authorize(principal, authz.Resource{}, action); err != nil {
				logger.Warn("Caller not authorized",
					zap.Int64("user_id", principal.UserID),
					zap.String("role", string(principal.Role)),
					zap.String("action", string(action)),
				)
				RespondWithError(w, http.StatusForbidden, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin ensures the caller holds the admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireAction(authz.ActionManageProducts, logger)
}
