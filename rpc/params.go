package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"corepay/crypto"
	"corepay/native/payments"
)

// payItem is the wire form of a single signed transfer. Amounts are decimal
// strings; the free nonce and signature are 0x-prefixed hex.
type payItem struct {
	Sender           string `json:"sender"`
	To               string `json:"to,omitempty"`
	Alias            string `json:"alias,omitempty"`
	Token            string `json:"token"`
	Amount           string `json:"amount"`
	Fee              string `json:"fee,omitempty"`
	Nonce            string `json:"nonce,omitempty"`
	Mode             string `json:"mode"`
	RestrictExecutor string `json:"restrictExecutor,omitempty"`
	Signature        string `json:"signature"`
}

type payParams struct {
	Executor string `json:"executor"`
	payItem
}

type batchParams struct {
	Executor string    `json:"executor"`
	Items    []payItem `json:"items"`
}

type disperseRecipient struct {
	To     string `json:"to,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Amount string `json:"amount"`
}

type disperseParams struct {
	Executor         string              `json:"executor"`
	Sender           string              `json:"sender"`
	Token            string              `json:"token"`
	Total            string              `json:"total"`
	Fee              string              `json:"fee,omitempty"`
	Nonce            string              `json:"nonce,omitempty"`
	Mode             string              `json:"mode"`
	RestrictExecutor string              `json:"restrictExecutor,omitempty"`
	Signature        string              `json:"signature"`
	Recipients       []disperseRecipient `json:"recipients"`
}

type balanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type addressParams struct {
	Address string `json:"address"`
}

type freeNonceParams struct {
	Address string `json:"address"`
	Value   string `json:"value"`
}

type statusResult struct {
	Status string `json:"status"`
}

type batchResult struct {
	SuccessCount int    `json:"successCount"`
	Results      []bool `json:"results"`
}

type balanceResult struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

type nonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type freeNonceResult struct {
	Address string `json:"address"`
	Value   string `json:"value"`
	Used    bool   `json:"used"`
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return addr, fmt.Errorf("rpc: address required")
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return addr, fmt.Errorf("rpc: decode address: %w", err)
	}
	return decoded.Raw(), nil
}

func parseOptionalAddress(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	return parseAddress(value)
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("rpc: invalid decimal amount %q", value)
	}
	return amount, nil
}

func parseMode(value string) (payments.NonceMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "sequential", "sync":
		return payments.NonceModeSequential, nil
	case "free", "async":
		return payments.NonceModeFree, nil
	}
	return 0, fmt.Errorf("rpc: unknown nonce mode %q", value)
}

func parseFreeNonce(value string) ([32]byte, error) {
	var nonce [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nonce, fmt.Errorf("rpc: free nonce required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nonce, fmt.Errorf("rpc: decode free nonce: %w", err)
	}
	if len(decoded) != len(nonce) {
		return nonce, fmt.Errorf("rpc: free nonce must be 32 bytes, got %d", len(decoded))
	}
	copy(nonce[:], decoded)
	return nonce, nil
}

func parseSignature(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("rpc: signature required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("rpc: decode signature: %w", err)
	}
	return decoded, nil
}

func (p payItem) toPayRequest() (payments.PayRequest, error) {
	var req payments.PayRequest
	sender, err := parseAddress(p.Sender)
	if err != nil {
		return req, err
	}
	to, err := parseOptionalAddress(p.To)
	if err != nil {
		return req, err
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return req, err
	}
	fee, err := parseAmount(p.Fee)
	if err != nil {
		return req, err
	}
	mode, err := parseMode(p.Mode)
	if err != nil {
		return req, err
	}
	restrict, err := parseOptionalAddress(p.RestrictExecutor)
	if err != nil {
		return req, err
	}
	signature, err := parseSignature(p.Signature)
	if err != nil {
		return req, err
	}
	req = payments.PayRequest{
		Sender:    sender,
		Recipient: payments.RecipientRef{Address: to, Alias: strings.TrimSpace(p.Alias)},
		Token:     p.Token,
		Amount:    amount,
		Fee:       fee,
		Mode:      mode,
		Executor:  restrict,
		Signature: signature,
	}
	if mode == payments.NonceModeFree {
		nonce, err := parseFreeNonce(p.Nonce)
		if err != nil {
			return req, err
		}
		req.FreeNonce = nonce
	}
	return req, nil
}

func (p payParams) toRequest() ([20]byte, payments.PayRequest, error) {
	executor, err := parseAddress(p.Executor)
	if err != nil {
		return [20]byte{}, payments.PayRequest{}, err
	}
	req, err := p.payItem.toPayRequest()
	if err != nil {
		return [20]byte{}, payments.PayRequest{}, err
	}
	return executor, req, nil
}

func (p batchParams) toRequests() ([20]byte, []payments.PayRequest, error) {
	executor, err := parseAddress(p.Executor)
	if err != nil {
		return [20]byte{}, nil, err
	}
	items := make([]payments.PayRequest, 0, len(p.Items))
	for i, item := range p.Items {
		req, err := item.toPayRequest()
		if err != nil {
			return [20]byte{}, nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, req)
	}
	return executor, items, nil
}

func (p disperseParams) toRequest() ([20]byte, payments.DisperseRequest, error) {
	var req payments.DisperseRequest
	executor, err := parseAddress(p.Executor)
	if err != nil {
		return [20]byte{}, req, err
	}
	sender, err := parseAddress(p.Sender)
	if err != nil {
		return [20]byte{}, req, err
	}
	total, err := parseAmount(p.Total)
	if err != nil {
		return [20]byte{}, req, err
	}
	fee, err := parseAmount(p.Fee)
	if err != nil {
		return [20]byte{}, req, err
	}
	mode, err := parseMode(p.Mode)
	if err != nil {
		return [20]byte{}, req, err
	}
	restrict, err := parseOptionalAddress(p.RestrictExecutor)
	if err != nil {
		return [20]byte{}, req, err
	}
	signature, err := parseSignature(p.Signature)
	if err != nil {
		return [20]byte{}, req, err
	}
	recipients := make([]payments.RecipientShare, 0, len(p.Recipients))
	for i, recipient := range p.Recipients {
		to, err := parseOptionalAddress(recipient.To)
		if err != nil {
			return [20]byte{}, req, fmt.Errorf("recipient %d: %w", i, err)
		}
		amount, err := parseAmount(recipient.Amount)
		if err != nil {
			return [20]byte{}, req, fmt.Errorf("recipient %d: %w", i, err)
		}
		recipients = append(recipients, payments.RecipientShare{
			Recipient: payments.RecipientRef{Address: to, Alias: strings.TrimSpace(recipient.Alias)},
			Amount:    amount,
		})
	}
	req = payments.DisperseRequest{
		Sender:     sender,
		Recipients: recipients,
		Token:      p.Token,
		Total:      total,
		Fee:        fee,
		Mode:       mode,
		Executor:   restrict,
		Signature:  signature,
	}
	if mode == payments.NonceModeFree {
		nonce, err := parseFreeNonce(p.Nonce)
		if err != nil {
			return [20]byte{}, req, err
		}
		req.FreeNonce = nonce
	}
	return executor, req, nil
}
