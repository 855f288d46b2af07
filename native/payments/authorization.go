package payments

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"corepay/crypto"
)

// personalMessagePrefix is prepended, together with the decimal byte length
// of the message, before hashing. Signing-library front ends apply the same
// transform, so a signature produced there recovers here bit-exactly.
const personalMessagePrefix = "\x19CorePay Signed Message:\n"

const signatureLength = 65

// PersonalDigest applies the personal-message transform to the canonical
// authorization string and returns the keccak256 digest that is signed.
func PersonalDigest(msg []byte) []byte {
	wrapped := fmt.Sprintf("%s%d%s", personalMessagePrefix, len(msg), msg)
	return ethcrypto.Keccak256([]byte(wrapped))
}

func hexAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func hexHash(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}

// CanonicalAuthorization builds the fixed-order, comma-joined authorization
// string covered by the sender's signature. Numbers render in decimal,
// addresses and hashes in 0x-prefixed lowercase hex.
func CanonicalAuthorization(chainID uint64, service [20]byte, opHash [32]byte, executor [20]byte, nonce string, mode NonceMode) string {
	return fmt.Sprintf("%d,%s,%s,%s,%s,%d", chainID, hexAddress(service), hexHash(opHash), hexAddress(executor), nonce, mode)
}

// PayOperationHash commits a signature to the semantic payload of a single
// transfer without embedding an operation name.
func PayOperationHash(recipient RecipientRef, token string, amount, fee *big.Int) [32]byte {
	payload := fmt.Sprintf("to=%s|alias=%s|token=%s|amount=%s|fee=%s",
		hexAddress(recipient.Address),
		strings.ToLower(strings.TrimSpace(recipient.Alias)),
		strings.ToUpper(strings.TrimSpace(token)),
		bigString(amount),
		bigString(fee),
	)
	var hash [32]byte
	copy(hash[:], ethcrypto.Keccak256([]byte(payload)))
	return hash
}

// DisperseOperationHash commits a signature to the entire recipient list of a
// fan-out payment plus the declared total and fee. The list hash covers the
// recipients in order, so any reordering or amount change invalidates the
// signature.
func DisperseOperationHash(recipients []RecipientShare, token string, total, fee *big.Int) [32]byte {
	entries := make([]string, 0, len(recipients))
	for _, share := range recipients {
		entries = append(entries, fmt.Sprintf("%s|%s:%s",
			hexAddress(share.Recipient.Address),
			strings.ToLower(strings.TrimSpace(share.Recipient.Alias)),
			bigString(share.Amount),
		))
	}
	listHash := ethcrypto.Keccak256([]byte(strings.Join(entries, ";")))
	payload := fmt.Sprintf("recipients=0x%s|token=%s|total=%s|fee=%s",
		hex.EncodeToString(listHash),
		strings.ToUpper(strings.TrimSpace(token)),
		bigString(total),
		bigString(fee),
	)
	var hash [32]byte
	copy(hash[:], ethcrypto.Keccak256([]byte(payload)))
	return hash
}

// RecoverSigner recovers the signing address from a 65-byte [R || S || V]
// signature over the personal digest of the canonical string. Both V in
// {0, 1} and the legacy {27, 28} encoding are accepted.
func RecoverSigner(canonical string, sig []byte) ([20]byte, error) {
	var signer [20]byte
	if len(sig) != signatureLength {
		return signer, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrInvalidSignature, signatureLength, len(sig))
	}
	normalized := make([]byte, signatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(PersonalDigest([]byte(canonical)), normalized)
	if err != nil {
		return signer, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	copy(signer[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return signer, nil
}

// SignAuthorization signs the canonical authorization string with the
// supplied key. Used by the SDK helpers and tests; the engine only ever
// recovers.
func SignAuthorization(key *crypto.PrivateKey, canonical string) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("payments: signing key required")
	}
	return ethcrypto.Sign(PersonalDigest([]byte(canonical)), key.PrivateKey)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
