package middle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"healthwatch/internals/security"
	"healthwatch/pkg/apperror"
	"healthwatch/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
)

type claimsCtxKeyType struct{}

var claimsCtxKey = claimsCtxKeyType{}

type AuthMiddleware struct {
	tokenSvc *security.TokenService
}

func NewAuthMiddleware(tokenSvc *security.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: tokenSvc,
	}
}

// Handle rejects requests without a valid bearer token and stores the
// claims in the request context.
func (a *AuthMiddleware) Handle(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)

		token, err := extractBearerToken(r)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, err.Error())
			return
		}

		claims, err := a.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}

		if claims.Subject == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "token has no subject")
			return
		}

		newCtx := context.WithValue(ctx, claimsCtxKey, claims)
		next.ServeHTTP(w, r.WithContext(newCtx))
	}

	return http.HandlerFunc(fn)
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header")
	}

	return parts[1], nil
}

func ClaimsFromContext(ctx context.Context) (*security.RequestClaims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(*security.RequestClaims)
	return claims, ok
}
