package middle

import (
	"net/http"

	"healthwatch/pkg/apperror"
	"healthwatch/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
)

// RequireScope must run after AuthMiddleware.Handle.
func RequireScope(scope string) Middleware {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := middleware.GetReqID(ctx)

			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "client is unauthorised")
				return
			}

			if !claims.HasScope(scope) {
				utils.WriteError(w, http.StatusForbidden, reqID, apperror.Forbidden, "token lacks scope "+scope)
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
