package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/config"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestDefaultStorageConfig(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, 5, cfg.Storage.VerifyAttempts)
	assert.Equal(t, 3, cfg.Storage.PutRetries)
	assert.Equal(t, 3, cfg.Storage.GetRetries)
	assert.Equal(t, 2*time.Second, cfg.Storage.VerifyInterval)
	assert.Equal(t, 30*time.Second, cfg.Storage.OperationTimeout)
	assert.Equal(t, "keyring", cfg.Wallet.AppPrefix)
	assert.True(t, cfg.Wallet.SealPrivateRecords)
	assert.True(t, cfg.Storage.ArrayEncoding)
	assert.Empty(t, cfg.Graph.Backend)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("KEYRING_STORAGE_VERIFY_ATTEMPTS", "9")
	t.Setenv("KEYRING_WALLET_APP_PREFIX", "shop")
	t.Setenv("KEYRING_LOGGER_LEVEL", "warn")

	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, 9, cfg.Storage.VerifyAttempts)
	assert.Equal(t, "shop", cfg.Wallet.AppPrefix)
	assert.Equal(t, zerolog.WarnLevel, cfg.Logger.Level)
}

func TestFromFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	err := os.WriteFile(path, []byte(`
[graph]
backend = "sqlite3"
dsn = "file:keyring.db"

[storage]
verify_attempts = 7
verify_interval = "250ms"
array_encoding = false
`), 0o600)
	require.NoError(t, err)

	base := config.DefaultServiceConfigFromEnv()
	cfg, err := config.FromFile(path, base)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Graph.Backend)
	assert.Equal(t, "file:keyring.db", cfg.Graph.DSN)
	assert.Equal(t, 7, cfg.Storage.VerifyAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.VerifyInterval)
	assert.Equal(t, base.Storage.PutRetries, cfg.Storage.PutRetries)
	assert.False(t, cfg.Storage.ArrayEncoding)
}

func TestFromFileMissing(t *testing.T) {
	base := config.DefaultServiceConfigFromEnv()
	cfg, err := config.FromFile(filepath.Join(t.TempDir(), "nope.toml"), base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
}
