package types

import "math/big"

// BalanceEntry is the stored representation of a single (account, token)
// balance. Token balances live in their own keyed entries rather than on an
// account record, so an account "exists" as soon as any balance or nonce
// state is written for it.
type BalanceEntry struct {
	Amount *big.Int
}

// EnsureDefaults normalises nil fields after decoding.
func (e *BalanceEntry) EnsureDefaults() {
	if e.Amount == nil {
		e.Amount = big.NewInt(0)
	}
}
