package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"corepay/core/state"
	"corepay/storage"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(state.NewManager(storage.NewMemDB()))
}

func TestStakerFlagRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	var addr [20]byte
	addr[0] = 0x01

	staker, err := reg.IsStaker(addr)
	require.NoError(t, err)
	require.False(t, staker)

	reg.SetStaker(addr, true)
	staker, err = reg.IsStaker(addr)
	require.NoError(t, err)
	require.True(t, staker)

	reg.SetStaker(addr, false)
	staker, err = reg.IsStaker(addr)
	require.NoError(t, err)
	require.False(t, staker)
}

func TestRewardUnitDefaultsToZero(t *testing.T) {
	reg := newRegistry(t)

	unit, err := reg.RewardUnit("CRWD")
	require.NoError(t, err)
	require.Zero(t, unit.Sign())

	require.NoError(t, reg.SetRewardUnit("CRWD", big.NewInt(25)))
	unit, err = reg.RewardUnit("CRWD")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(25), unit)

	// Units are per token.
	other, err := reg.RewardUnit("CORE")
	require.NoError(t, err)
	require.Zero(t, other.Sign())
}
