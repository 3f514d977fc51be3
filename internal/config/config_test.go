package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars for the test's lifetime.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func writeKeyFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-key"), 0o600))
	return path
}

func TestLoad_Development_AcceptsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":          "development",
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, placeholderRefreshSecret, cfg.JWTRefreshSecret)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 8760*time.Hour, cfg.RefreshTokenTTL)
}

func TestLoad_RequiresPrivateKeyFile(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":          "development",
		"JWT_PRIVATE_KEY_FILE": "",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_PRIVATE_KEY_FILE must be set")
}

func TestLoad_Production_RejectsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":          "production",
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
		"JWT_REFRESH_SECRET":   placeholderRefreshSecret,
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":          "production",
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
		"JWT_REFRESH_SECRET":   "short-but-not-default-secret",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET must be at least 32 characters")
}

func TestLoad_Production_AcceptsStrongSecret(t *testing.T) {
	strongSecret := "this-is-a-very-secure-refresh-secret-for-production-1234"
	setEnvs(t, map[string]string{
		"ENVIRONMENT":          "production",
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
		"JWT_REFRESH_SECRET":   strongSecret,
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, strongSecret, cfg.JWTRefreshSecret)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	setEnvs(t, map[string]string{
		"IDENTITY_HTTP_PORT":   "70000",
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestReadPrivateKey(t *testing.T) {
	path := writeKeyFile(t)
	setEnvs(t, map[string]string{
		"JWT_PRIVATE_KEY_FILE": path,
	})

	cfg, err := Load()
	require.NoError(t, err)

	pem, err := cfg.ReadPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("not-a-real-key"), pem)
}

func TestPostgresAndRedisMappings(t *testing.T) {
	setEnvs(t, map[string]string{
		"JWT_PRIVATE_KEY_FILE": writeKeyFile(t),
		"POSTGRES_HOST":        "db.internal",
		"POSTGRES_PORT":        "5433",
		"REDIS_HOST":           "cache.internal",
		"REDIS_DB":             "3",
	})

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, 5433, pg.Port)
	assert.Equal(t, "identity_db", pg.DBName)

	rd := cfg.Redis()
	assert.Equal(t, "cache.internal", rd.Host)
	assert.Equal(t, 3, rd.DB)
}
