package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should load without a store or session secret", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CONFIG_ENV_PATH", "")
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("MYSQL_DSN", "")
		t.Setenv("DATABASE_URL", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.MySQLDSN)

		err = cfg.Require("SESSION_SECRET", "MYSQL_DSN")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_SECRET")
		assert.Contains(t, err.Error(), "MYSQL_DSN")
	})

	t.Run("should apply defaults and fall back to DATABASE_URL", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("CONFIG_ENV_PATH", "")
		t.Setenv("SESSION_SECRET", "secret")
		t.Setenv("MYSQL_DSN", "")
		t.Setenv("DATABASE_URL", "planner:planner@tcp(localhost:3306)/planner")
		t.Setenv("HTTP_LISTEN_ADDR", "")
		t.Setenv("SESSION_TTL_HOURS", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "planner:planner@tcp(localhost:3306)/planner", cfg.MySQLDSN)
		assert.Equal(t, ":8080", cfg.HTTPListenAddr)
		assert.Equal(t, 365*24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, "payment-proofs", cfg.S3Prefix)
		assert.False(t, cfg.StorageEnabled())
		assert.NoError(t, cfg.Require("SESSION_SECRET", "MYSQL_DSN"))
	})

	t.Run("should read values from the env file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, "custom.env")
		require.NoError(t, os.WriteFile(path, []byte("SESSION_SECRET=from-file\nOWNER_OPEN_ID=owner-1\n"), 0o600))
		t.Setenv("CONFIG_ENV_PATH", path)
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("OWNER_OPEN_ID", "")
		// godotenv.Load does not override variables already present, so unset them.
		require.NoError(t, os.Unsetenv("SESSION_SECRET"))
		require.NoError(t, os.Unsetenv("OWNER_OPEN_ID"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.SessionSecret)
		assert.Equal(t, "owner-1", cfg.OwnerOpenID)
	})
}

func TestStorageEnabled(t *testing.T) {
	cfg := Config{
		S3Region:        "us-east-1",
		S3AccessKey:     "key",
		S3SecretKey:     "secret",
		S3Bucket:        "proofs",
		S3PublicBaseURL: "https://cdn.example.com",
	}
	assert.True(t, cfg.StorageEnabled())

	cfg.S3Bucket = ""
	assert.False(t, cfg.StorageEnabled())
}
