// =============================
// File: internal/config/config_test.go
// =============================
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LAUNCHPAD_WALLET_PRIVATE_KEY", solana.NewWallet().PrivateKey.String())
	t.Setenv("LAUNCHPAD_TRADE_FEE_RECIPIENT", solana.NewWallet().PublicKey().String())
}

func TestLoad_DefaultsWithEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPC.URL)
	assert.Equal(t, uint32(200_000), cfg.Trade.ComputeUnitLimit)
	assert.Equal(t, 5*time.Second, cfg.Trade.SnapshotTTL)
	assert.Equal(t, 200*time.Millisecond, cfg.Throttle.MinDelay)
	assert.Equal(t, 64, cfg.Throttle.QueueCapacity)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LAUNCHPAD_RPC_URL", "https://rpc.example.test")
	t.Setenv("LAUNCHPAD_THROTTLE_MIN_DELAY", "500ms")
	t.Setenv("LAUNCHPAD_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.test", cfg.RPC.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Throttle.MinDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("rpc:\n  url: https://file.example.test\ntrade:\n  skip_preflight: true\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.test", cfg.RPC.URL)
	assert.True(t, cfg.Trade.SkipPreflight)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Run("missing private key", func(t *testing.T) {
		t.Setenv("LAUNCHPAD_WALLET_PRIVATE_KEY", "")
		t.Setenv("LAUNCHPAD_TRADE_FEE_RECIPIENT", solana.NewWallet().PublicKey().String())
		_, err := Load("")
		assert.ErrorContains(t, err, "private_key")
	})

	t.Run("missing fee recipient", func(t *testing.T) {
		t.Setenv("LAUNCHPAD_WALLET_PRIVATE_KEY", solana.NewWallet().PrivateKey.String())
		t.Setenv("LAUNCHPAD_TRADE_FEE_RECIPIENT", "")
		_, err := Load("")
		assert.ErrorContains(t, err, "fee_recipient")
	})

	t.Run("bad config path", func(t *testing.T) {
		setRequiredEnv(t)
		_, err := Load("/nonexistent/config.yaml")
		assert.Error(t, err)
	})
}
