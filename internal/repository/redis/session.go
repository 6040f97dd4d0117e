package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/pkg/database"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

const sessionKeyPrefix = "session:"

// SessionRepository stores sign-in sessions in Redis. Keys expire with the
// session.
type SessionRepository struct {
	client redis.Cmdable
}

// NewSessionRepository creates a new Redis-backed session repository.
func NewSessionRepository(client redis.Cmdable) *SessionRepository {
	return &SessionRepository{client: client}
}

// Create stores the session until its ExpiresAt.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (err error) {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return apperrors.InvalidInput("session already expired")
	}

	ctx, end := database.TraceCommand(ctx, "redis", "SET", "SET "+sessionKeyPrefix+"*")
	defer func() { end(err) }()

	if err = r.client.Set(ctx, sessionKeyPrefix+s.Token, data, ttl).Err(); err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("redis set session: %w", err))
	}
	return nil
}

// Get resolves a token. Unknown or expired tokens are NotFound.
func (r *SessionRepository) Get(ctx context.Context, token string) (s *domain.Session, err error) {
	ctx, end := database.TraceCommand(ctx, "redis", "GET", "GET "+sessionKeyPrefix+"*")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session", "token")
		}
		return nil, apperrors.StoreUnavailable(fmt.Errorf("redis get session: %w", err))
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Token = token

	return &session, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) (err error) {
	ctx, end := database.TraceCommand(ctx, "redis", "DEL", "DEL "+sessionKeyPrefix+"*")
	defer func() { end(err) }()

	if err = r.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("redis del session: %w", err))
	}
	return nil
}
