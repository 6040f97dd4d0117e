package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/estore/internal/service"
	"github.com/utafrali/estore/pkg/httputil"
	"github.com/utafrali/estore/pkg/middleware"
)

// AuthHandler handles sign-in, sign-out and the account endpoint.
type AuthHandler struct {
	service   *service.AuthService
	logger    *slog.Logger
	cookieTTL time.Duration
	secure    bool
}

// NewAuthHandler creates a new auth HTTP handler. Cookies set on sign-in
// live for cookieTTL.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		logger:    logger,
		cookieTTL: cookieTTL,
		secure:    secure,
	}
}

// LoginRequest is the JSON request body for signing in. Admin is set by the
// admin sign-in form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Admin    bool   `json:"admin"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	maxAge := int(h.cookieTTL.Seconds())
	h.setCookie(w, middleware.TokenCookie, session.Token, maxAge, true)
	// The role cookie only drives what the storefront renders; the gate
	// checks the server-side session.
	h.setCookie(w, middleware.RoleCookie, session.Role, maxAge, false)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.TokenCookie); err == nil {
		if err := h.service.Logout(r.Context(), c.Value); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	h.setCookie(w, middleware.TokenCookie, "", -1, true)
	h.setCookie(w, middleware.RoleCookie, "", -1, false)
	w.WriteHeader(http.StatusNoContent)
}

// Account handles GET /api/v1/account
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: middleware.ClaimsFromContext(r.Context())})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
