package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marcelsud/inbound-processor/config"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := config.Load(t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "endpoints.yaml", cfg.EndpointsFile)
		assert.Equal(t, "30", cfg.RetentionDays)
		assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes())
		assert.True(t, cfg.LogJSON)
	})

	t.Run("file then environment", func(t *testing.T) {
		dir := t.TempDir()
		content := "PORT = \"9000\"\nREDIS_DB = 2\nRETENTION_DAYS = \"7\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
		t.Setenv("REDIS_DB", "3")
		t.Setenv("WORKER_ID", "worker-9")

		cfg, err := config.Load(dir)

		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, 3, cfg.RedisDB)
		assert.Equal(t, "7", cfg.Retention())
		assert.Equal(t, "worker-9", cfg.WorkerID)
	})

	t.Run("retention null never prunes", func(t *testing.T) {
		t.Setenv("RETENTION_DAYS", "null")

		cfg, err := config.Load(t.TempDir())
		require.NoError(t, err)

		retention, err := inbound.ParseRetention(cfg.Retention())
		require.NoError(t, err)
		assert.True(t, retention.Never)
	})

	t.Run("empty retention env keeps the default", func(t *testing.T) {
		t.Setenv("RETENTION_DAYS", "")

		cfg, err := config.Load(t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, "30", cfg.Retention())
	})

	t.Run("error - malformed file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT = = ="), 0o600))

		_, err := config.Load(dir)

		assert.ErrorContains(t, err, "reading config file")
	})
}
