package middleware

import (
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/pkg/logger"
)

// IdentityLogger adds the authenticated caller to the request scoped logger.
// It must run after the authentication middleware.
func IdentityLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := internal.IdentityFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", identity.ID, "role", identity.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
