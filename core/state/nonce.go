package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// ErrNonceMismatch is returned when a sequential nonce does not match the
	// account's current counter.
	ErrNonceMismatch = errors.New("state: sequential nonce mismatch")
	// ErrNonceUsed is returned when a free nonce value was already consumed
	// by the account.
	ErrNonceUsed = errors.New("state: nonce already used")
)

// SequentialNonce returns the account's current sequential counter. Accounts
// start at zero on first use.
func (m *Manager) SequentialNonce(addr [20]byte) (uint64, error) {
	data, err := m.get(seqNonceKey(addr))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	var nonce uint64
	if err := rlp.DecodeBytes(data, &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// AdvanceSequentialNonce validates the supplied nonce against the account
// counter and increments the counter by exactly one. The check is
// side-effect-free on failure.
func (m *Manager) AdvanceSequentialNonce(addr [20]byte, supplied uint64) error {
	current, err := m.SequentialNonce(addr)
	if err != nil {
		return err
	}
	if supplied != current {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, current, supplied)
	}
	encoded, err := rlp.EncodeToBytes(current + 1)
	if err != nil {
		return err
	}
	m.put(seqNonceKey(addr), encoded)
	return nil
}

// FreeNonceUsed reports whether the account has already consumed the given
// free-mode nonce value.
func (m *Manager) FreeNonceUsed(addr [20]byte, value [32]byte) (bool, error) {
	data, err := m.get(freeNonceKey(addr, value))
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// ConsumeFreeNonce marks a free-mode nonce value as used for the account. A
// value can only ever be consumed once; the set never shrinks.
func (m *Manager) ConsumeFreeNonce(addr [20]byte, value [32]byte) error {
	used, err := m.FreeNonceUsed(addr, value)
	if err != nil {
		return err
	}
	if used {
		return ErrNonceUsed
	}
	m.put(freeNonceKey(addr, value), []byte{1})
	return nil
}
