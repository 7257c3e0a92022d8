package auth

import (
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// Middleware authenticates the request and binds the token's tenant and user
// to the request context. The tenant is never taken from the request itself.
func Middleware(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Verify(TokenFromRequest(r))
			if err != nil {
				logger.FromContext(r.Context()).Debug("Rejected unauthenticated request",
					zap.String("path", r.URL.Path), zap.Error(err))
				utils.WriteError(w, err)
				return
			}

			ctx := tenant.WithCompanyID(r.Context(), claims.CompanyID)
			ctx = tenant.WithUserID(ctx, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
