package payments

import "errors"

var (
	// ErrInvalidSignature covers malformed signatures and recovered signers
	// that do not match the claimed sender.
	ErrInvalidSignature = errors.New("payments: invalid signature")
	// ErrNonceUsed is returned when a free-mode nonce value was already
	// consumed by the sender.
	ErrNonceUsed = errors.New("payments: nonce already used")
	// ErrNonceMismatch is returned when a sequential nonce does not match the
	// sender's counter.
	ErrNonceMismatch = errors.New("payments: sequential nonce mismatch")
	// ErrInvalidExecutor is returned when a request restricted to a specific
	// executor is submitted by someone else.
	ErrInvalidExecutor = errors.New("payments: executor restriction mismatch")
	// ErrInsufficientBalance is returned when the sender cannot cover the
	// transfer plus any due priority fee.
	ErrInsufficientBalance = errors.New("payments: insufficient balance")
	// ErrIdentityResolution is returned when a recipient alias cannot be
	// resolved to an address.
	ErrIdentityResolution = errors.New("payments: identity resolution failed")
	// ErrInvalidAmount covers nil/negative amounts and fan-out share sums
	// that do not reconcile with the declared total.
	ErrInvalidAmount = errors.New("payments: invalid amount")
	// ErrTransferFailed wraps unexpected ledger failures during settlement.
	ErrTransferFailed = errors.New("payments: transfer failed")
)
