package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"corepay/core/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the stored
	// balance. The balance is left untouched.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("state: invalid amount")
	// ErrBalanceOverflow indicates a credit pushed a balance past the
	// representable range. Callers validate amounts, so hitting this is a
	// precondition violation.
	ErrBalanceOverflow = errors.New("state: balance overflow")
)

// Balance returns the stored balance for (addr, token). Unknown entries read
// as zero; the entry itself is created lazily at first credit.
func (m *Manager) Balance(addr [20]byte, token string) (*big.Int, error) {
	normalized := NormalizeTokenSymbol(token)
	data, err := m.get(balanceKey(addr, normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	entry := new(types.BalanceEntry)
	if err := rlp.DecodeBytes(data, entry); err != nil {
		return nil, err
	}
	entry.EnsureDefaults()
	return entry.Amount, nil
}

func (m *Manager) setBalance(addr [20]byte, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrBalanceOverflow
	}
	encoded, err := rlp.EncodeToBytes(&types.BalanceEntry{Amount: amount})
	if err != nil {
		return err
	}
	m.put(balanceKey(addr, NormalizeTokenSymbol(token)), encoded)
	return nil
}

// Credit adds amount to the (addr, token) balance.
func (m *Manager) Credit(addr [20]byte, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	balance, err := m.Balance(addr, token)
	if err != nil {
		return err
	}
	return m.setBalance(addr, token, new(big.Int).Add(balance, amount))
}

// Debit subtracts amount from the (addr, token) balance. On insufficient
// funds the balance is untouched and ErrInsufficientBalance is returned.
func (m *Manager) Debit(addr [20]byte, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	balance, err := m.Balance(addr, token)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	return m.setBalance(addr, token, new(big.Int).Sub(balance, amount))
}

// Transfer moves amount from one account to another. The debit runs first; if
// it fails the credit never executes, so no partial state is observable.
func (m *Manager) Transfer(from, to [20]byte, token string, amount *big.Int) error {
	if err := m.Debit(from, token, amount); err != nil {
		return err
	}
	return m.Credit(to, token, amount)
}
