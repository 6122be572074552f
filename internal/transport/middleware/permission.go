package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/pkg/logger"
)

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				writeAppError(w, internal.ErrInvalidToken)
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.From(r.Context()).Warn("access denied: role not allowed",
				"user_id", identity.ID,
				"role", identity.Role,
				"required_roles", roles)
			writeAppError(w, internal.ErrAdminRequired)
		})
	}
}

// RequireAdmin rejects members with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(internal.RoleAdmin)(next)
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
