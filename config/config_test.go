package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8561", cfg.RPCAddress)
	require.Equal(t, uint64(5), cfg.BlockIntervalSeconds)
	require.Equal(t, "fixed", cfg.PriceModel)
	require.Equal(t, uint64(10), cfg.BuyLimitCount)

	// The file exists now and loads back identically.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
RPCAddress = "0.0.0.0:9000"
FeeBps = 250
PriceModel = "ascending-tier"
TierBase = "5000"
TierStep = "100"
TierSize = 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, uint32(250), cfg.FeeBps)
	require.Equal(t, "ascending-tier", cfg.PriceModel)
	require.Equal(t, "5000", cfg.TierBase)
	require.Equal(t, uint64(25), cfg.TierSize)
	// Untouched fields fall back to defaults.
	require.Equal(t, "./mintgate-data", cfg.DataDir)
	require.Equal(t, uint64(100), cfg.BuyLimitPeriod)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
RPCAddress = "0.0.0.0:9000"
Unknown = true
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown fields")
}
