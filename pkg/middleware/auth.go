package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/utafrali/estore/pkg/errors"
	"github.com/utafrali/estore/pkg/httputil"
)

// Cookie names shared with the storefront frontend.
const (
	TokenCookie = "token"
	RoleCookie  = "userRole"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims describes the signed-in user behind a session token.
type Claims struct {
	Token string `json:"-"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenValidator resolves a token cookie to its claims. An error means the
// token is unknown or expired, unless it maps to 503, in which case the
// session store could not be asked.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// Auth rejects requests without a valid token cookie and stores the resolved
// claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(TokenCookie)
			if err != nil || c.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
				return
			}

			claims, err := validate(r.Context(), c.Value)
			if err != nil {
				if apperrors.HTTPStatus(err) == http.StatusServiceUnavailable {
					httputil.WriteError(w, r, err, nil)
					return
				}
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks that the authenticated user has one of the given roles.
// It must be mounted after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Role
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{Code: code, Message: message},
	})
}
