package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/estore/internal/service"
	"github.com/utafrali/estore/pkg/httputil"
	"github.com/utafrali/estore/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// sessionValidator adapts AuthService to the token validator used by the
// middleware.Auth gate.
func sessionValidator(auth *service.AuthService) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		session, err := auth.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			Token: session.Token,
			Email: session.Email,
			Role:  session.Role,
		}, nil
	}
}
