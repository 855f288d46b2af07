package payments

import "math/big"

// NonceMode selects the replay-protection discipline for a signed request.
type NonceMode uint8

const (
	// NonceModeSequential validates against the sender's monotonic counter.
	// The authority supplies the expected value, so sequential requests from
	// one sender commit in strict order with no gaps.
	NonceModeSequential NonceMode = 0
	// NonceModeFree validates against the sender's consumed-value set,
	// allowing requests to be prepared and submitted out of order.
	NonceModeFree NonceMode = 1
)

// Valid reports whether the mode is one of the two defined values.
func (m NonceMode) Valid() bool {
	return m == NonceModeSequential || m == NonceModeFree
}

// RecipientRef identifies the receiving account either directly by address or
// indirectly through a registered alias. A non-empty Alias takes precedence
// and is resolved at execution time.
type RecipientRef struct {
	Address [20]byte
	Alias   string
}

// PayRequest is a single signed transfer authorization. It is constructed and
// signed off-ledger by the sender and may be submitted by any executor unless
// Executor restricts submission.
type PayRequest struct {
	Sender    [20]byte
	Recipient RecipientRef
	Token     string
	Amount    *big.Int
	Fee       *big.Int
	// FreeNonce carries the caller-chosen nonce value in free mode. In
	// sequential mode the nonce is authority-assigned and this field is
	// ignored.
	FreeNonce [32]byte
	Mode      NonceMode
	// Executor restricts who may submit the request; the zero address means
	// anyone.
	Executor  [20]byte
	Signature []byte
}

// RecipientShare is one leg of a fan-out payment.
type RecipientShare struct {
	Recipient RecipientRef
	Amount    *big.Int
}

// DisperseRequest is a single signed authorization distributing a declared
// total across many recipients. One signature commits to the entire
// recipient list.
type DisperseRequest struct {
	Sender     [20]byte
	Recipients []RecipientShare
	Token      string
	Total      *big.Int
	Fee        *big.Int
	FreeNonce  [32]byte
	Mode       NonceMode
	Executor   [20]byte
	Signature  []byte
}

// BatchResult reports the outcome of a batch call. Results holds one entry
// per input item in input order; callers must inspect it, since a nil call
// error does not imply every item succeeded.
type BatchResult struct {
	Successes int
	Results   []bool
}
