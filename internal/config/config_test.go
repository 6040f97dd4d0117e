package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, CatalogStorePostgres, cfg.CatalogStore)
	assert.True(t, cfg.SeedCatalog)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
}

func TestLoad_MemoryCatalog(t *testing.T) {
	t.Setenv("CATALOG_STORE", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, CatalogStoreMemory, cfg.CatalogStore)
}

func TestLoad_UnknownCatalogStore(t *testing.T) {
	t.Setenv("CATALOG_STORE", "mongo")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_STORE")
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("ESTORE_HTTP_PORT", "70000")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_InvalidCartTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_TTL_HOURS")
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PASSWORD", "p@ss")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, time.Hour, pg.MaxConnLifetime)
	assert.Contains(t, pg.DSN(), "db.internal:5432/estore")
	assert.Contains(t, pg.DSN(), "sslmode=disable")
}
