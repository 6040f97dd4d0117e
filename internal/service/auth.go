package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/internal/repository"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

// Credential is one hard-coded sign-in account.
type Credential struct {
	Email    string
	Password string
	Role     string
}

// AuthService checks sign-in credentials against a fixed account list and
// manages the resulting sessions.
type AuthService struct {
	sessions    repository.SessionRepository
	credentials []Credential
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService creates a new auth service. Sessions live for ttl.
func NewAuthService(sessions repository.SessionRepository, credentials []Credential, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		sessions:    sessions,
		credentials: credentials,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// LoginInput holds the parameters of a sign-in attempt. Admin selects the
// admin sign-in form, which only accepts admin accounts.
type LoginInput struct {
	Email    string
	Password string
	Admin    bool
}

// Login verifies the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*domain.Session, error) {
	wantRole := domain.RoleUser
	if input.Admin {
		wantRole = domain.RoleAdmin
	}

	cred, ok := s.match(input.Email, input.Password)
	if !ok || cred.Role != wantRole {
		s.logger.WarnContext(ctx, "sign-in rejected",
			slog.String("email", input.Email),
			slog.Bool("admin", input.Admin),
		)
		if input.Admin {
			return nil, apperrors.Unauthorized("invalid admin credentials")
		}
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	now := s.now().UTC()
	session := &domain.Session{
		Token:     uuid.New().String(),
		Email:     cred.Email,
		Role:      cred.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "signed in",
		slog.String("email", session.Email),
		slog.String("role", session.Role),
	)
	return session, nil
}

func (s *AuthService) match(email, password string) (Credential, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, c := range s.credentials {
		if strings.ToLower(c.Email) != email {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1 {
			return c, true
		}
	}
	return Credential{}, false
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a token to its session. Unknown or expired tokens
// are Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid or expired session")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, apperrors.Unauthorized("invalid or expired session")
	}
	return session, nil
}
