package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"corepay/config"
	"corepay/core"
	"corepay/crypto"
	"corepay/storage"
)

func TestSeedAppliesAllocationsOnce(t *testing.T) {
	raw := [20]byte{0x01}
	holder := crypto.MustNewAddress(crypto.CorePrefix, raw[:]).String()
	staker := [20]byte{0x02}

	cfg := &config.Config{
		ChainID:     7,
		RewardToken: "CORE",
		Tokens:      []config.TokenConfig{{Symbol: "CORE", Name: "Core Token", Decimals: 18}},
		RewardUnits: []config.RewardUnitConfig{{Token: "CORE", Amount: "5"}},
		Stakers:     []string{crypto.MustNewAddress(crypto.CorePrefix, staker[:]).String()},
		Allocations: []config.AllocationConfig{{Address: holder, Token: "CORE", Amount: "1000"}},
	}

	db := storage.NewMemDB()
	node := core.NewNode(db, cfg.ChainID, [20]byte{}, cfg.RewardToken, nil)
	require.NoError(t, seed(node, cfg))

	balance, err := node.GetBalance(raw, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), balance)

	// A restart re-runs seed against the same database; the allocation must
	// not double.
	restarted := core.NewNode(db, cfg.ChainID, [20]byte{}, cfg.RewardToken, nil)
	require.NoError(t, seed(restarted, cfg))

	balance, err = restarted.GetBalance(raw, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), balance)
}
