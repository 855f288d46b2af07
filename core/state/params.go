package state

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var allocationsSeededKey = ethcrypto.Keccak256([]byte("genesis:allocations-seeded"))

// AllocationsSeeded reports whether genesis allocations were already applied
// to this database.
func (m *Manager) AllocationsSeeded() (bool, error) {
	data, err := m.get(allocationsSeededKey)
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// SetAllocationsSeeded records that genesis allocations have been applied.
// The marker is never cleared.
func (m *Manager) SetAllocationsSeeded() {
	m.put(allocationsSeededKey, []byte{1})
}

// RewardUnit returns the configured incentive scalar for the given token.
// Unset tokens read as zero, which disables payouts for them.
func (m *Manager) RewardUnit(token string) (*big.Int, error) {
	data, err := m.get(rewardUnitKey(NormalizeTokenSymbol(token)))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetRewardUnit stores the incentive scalar for a token.
func (m *Manager) SetRewardUnit(token string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	m.put(rewardUnitKey(NormalizeTokenSymbol(token)), encoded)
	return nil
}
