package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, uint64(1991), cfg.ChainID)
	require.Equal(t, "CORE", cfg.RewardToken)
	require.FileExists(t, path)

	// A second load reads the file written by the first.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.NetworkName, reloaded.NetworkName)
}

func TestLoadRejectsUnknownRewardToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
RPCAddress = ":9000"
ChainID = 7
RewardToken = "MISSING"

[[Tokens]]
Symbol = "CORE"
Name = "CorePay Token"
Decimals = 18
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reward token")
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
RPCAddress = ":9000"
ChainID = 7
RewardToken = "core"

[[Tokens]]
Symbol = "CORE"
Name = "CorePay Token"
Decimals = 18

[[RewardUnits]]
Token = "CORE"
Amount = "1000000000000000000"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7), cfg.ChainID)
	require.Len(t, cfg.RewardUnits, 1)

	addr, err := cfg.ServiceAddressBytes()
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, addr)
}
