package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5433,
		User:     "store",
		Password: "p@ss/word",
		DBName:   "storefront",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://store:p%40ss%2Fword@db:5433/storefront?sslmode=disable", cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}

func TestRetryBackoff_WithinJitter(t *testing.T) {
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		base := defaultRetryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestWithRetry_StopsOnStatementError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), nil, "op", func() error {
		calls++
		return errors.New("syntax error at or near \"SELEC\"")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, nil, "op", func() error {
		calls++
		cancel()
		return errors.New("dial tcp: connection refused")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_Succeeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), nil, "op", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
