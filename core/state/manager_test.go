package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"corepay/storage"
)

func TestRegisterToken(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.RegisterToken("core", "CorePay Token", 18))

	meta, err := m.Token("CORE")
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Equal(t, "CORE", meta.Symbol)
	require.Equal(t, uint8(18), meta.Decimals)

	require.Error(t, m.RegisterToken("CORE", "duplicate", 18))

	list, err := m.TokenList()
	require.NoError(t, err)
	require.Equal(t, []string{"CORE"}, list)
}

func TestCommitPersistsAcrossManagers(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	alice := addr(0x01)

	require.NoError(t, m.Credit(alice, "CORE", big.NewInt(42)))
	require.True(t, m.Dirty())
	require.NoError(t, m.Commit())
	require.False(t, m.Dirty())

	reopened := NewManager(db)
	balance, err := reopened.Balance(alice, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), balance)
}

func TestDiscardDropsOverlay(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	alice := addr(0x01)

	require.NoError(t, m.Credit(alice, "CORE", big.NewInt(42)))
	m.Discard()

	balance, err := m.Balance(alice, "CORE")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	reopened := NewManager(db)
	balance, err = reopened.Balance(alice, "CORE")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func TestSnapshotRevertRestoresOverlay(t *testing.T) {
	m := newTestManager(t)
	alice, bob := addr(0x01), addr(0x02)
	require.NoError(t, m.Credit(alice, "CORE", big.NewInt(50)))

	snap := m.Snapshot()
	require.NoError(t, m.Debit(alice, "CORE", big.NewInt(20)))
	require.NoError(t, m.Credit(bob, "CORE", big.NewInt(20)))

	m.RevertToSnapshot(snap)

	aliceBal, err := m.Balance(alice, "CORE")
	require.NoError(t, err)
	bobBal, err := m.Balance(bob, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), aliceBal)
	require.Zero(t, bobBal.Sign())
}

func TestSnapshotRevertKeepsEarlierWrites(t *testing.T) {
	m := newTestManager(t)
	alice := addr(0x01)
	require.NoError(t, m.Credit(alice, "CORE", big.NewInt(10)))

	snap := m.Snapshot()
	require.NoError(t, m.Credit(alice, "CORE", big.NewInt(5)))
	m.RevertToSnapshot(snap)

	balance, err := m.Balance(alice, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), balance)

	// The pre-snapshot write still commits.
	require.NoError(t, m.Commit())
	reopened, err := NewManager(m.db).Balance(alice, "CORE")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), reopened)
}

func TestStakerFlag(t *testing.T) {
	m := newTestManager(t)
	alice := addr(0x01)

	staker, err := m.IsStaker(alice)
	require.NoError(t, err)
	require.False(t, staker)

	m.SetStaker(alice, true)
	staker, err = m.IsStaker(alice)
	require.NoError(t, err)
	require.True(t, staker)

	m.SetStaker(alice, false)
	staker, err = m.IsStaker(alice)
	require.NoError(t, err)
	require.False(t, staker)
}

func TestRewardUnitRoundTrip(t *testing.T) {
	m := newTestManager(t)

	unit, err := m.RewardUnit("CORE")
	require.NoError(t, err)
	require.Zero(t, unit.Sign())

	require.NoError(t, m.SetRewardUnit("CORE", big.NewInt(1000)))
	unit, err = m.RewardUnit("core")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), unit)
}
