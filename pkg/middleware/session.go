package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/estore/pkg/logger"
)

// SessionConfig controls the anonymous browser session cookie that keys the
// shopping cart.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session makes sure every request carries a session id. An existing cookie
// is reused; otherwise a new id is generated and sent back. The id is stored
// with logger.WithSessionID.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "cart_session"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					id = c.Value
				}
			}

			if id == "" {
				id = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := logger.WithSessionID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromRequest returns the session id established by Session.
func SessionIDFromRequest(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}
