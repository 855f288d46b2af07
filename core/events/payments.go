package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"corepay/core/types"
)

const (
	// TypePaymentSettled is emitted once a single signed payment commits.
	TypePaymentSettled = "payments.settled"
	// TypePaymentBatchSettled is emitted after a batch call finishes, whether
	// or not every item succeeded.
	TypePaymentBatchSettled = "payments.batch_settled"
	// TypePaymentDispersed is emitted once a fan-out payment commits.
	TypePaymentDispersed = "payments.dispersed"
	// TypeExecutorRewarded is emitted when a privileged executor receives an
	// incentive payout.
	TypeExecutorRewarded = "payments.executor_rewarded"
)

// PaymentSettled represents a committed single transfer.
type PaymentSettled struct {
	Sender   []byte
	Receiver []byte
	Token    string
	Amount   *big.Int
	Fee      *big.Int
	Executor []byte
}

// EventType satisfies the events.Event interface.
func (PaymentSettled) EventType() string { return TypePaymentSettled }

// Event converts the structured payload into a wire-friendly representation
// for RPC subscribers.
func (e PaymentSettled) Event() *types.Event {
	attrs := map[string]string{
		"token":  strings.ToUpper(e.Token),
		"amount": bigString(e.Amount),
	}
	if e.Fee != nil && e.Fee.Sign() > 0 {
		attrs["fee"] = e.Fee.String()
	}
	if len(e.Sender) > 0 {
		attrs["from"] = hex.EncodeToString(e.Sender)
	}
	if len(e.Receiver) > 0 {
		attrs["to"] = hex.EncodeToString(e.Receiver)
	}
	if len(e.Executor) > 0 {
		attrs["executor"] = hex.EncodeToString(e.Executor)
	}
	return &types.Event{Type: TypePaymentSettled, Attributes: attrs}
}

// PaymentBatchSettled summarises a finished batch call.
type PaymentBatchSettled struct {
	Executor  []byte
	Items     int
	Successes int
	Atomic    bool
}

// EventType satisfies the events.Event interface.
func (PaymentBatchSettled) EventType() string { return TypePaymentBatchSettled }

// Event converts the structured payload into a wire-friendly representation.
func (e PaymentBatchSettled) Event() *types.Event {
	attrs := map[string]string{
		"items":     strconv.Itoa(e.Items),
		"successes": strconv.Itoa(e.Successes),
		"atomic":    strconv.FormatBool(e.Atomic),
	}
	if len(e.Executor) > 0 {
		attrs["executor"] = hex.EncodeToString(e.Executor)
	}
	return &types.Event{Type: TypePaymentBatchSettled, Attributes: attrs}
}

// PaymentDispersed represents a committed fan-out payment.
type PaymentDispersed struct {
	Sender     []byte
	Token      string
	Total      *big.Int
	Fee        *big.Int
	Recipients int
	Executor   []byte
}

// EventType satisfies the events.Event interface.
func (PaymentDispersed) EventType() string { return TypePaymentDispersed }

// Event converts the structured payload into a wire-friendly representation.
func (e PaymentDispersed) Event() *types.Event {
	attrs := map[string]string{
		"token":      strings.ToUpper(e.Token),
		"total":      bigString(e.Total),
		"recipients": strconv.Itoa(e.Recipients),
	}
	if e.Fee != nil && e.Fee.Sign() > 0 {
		attrs["fee"] = e.Fee.String()
	}
	if len(e.Sender) > 0 {
		attrs["from"] = hex.EncodeToString(e.Sender)
	}
	if len(e.Executor) > 0 {
		attrs["executor"] = hex.EncodeToString(e.Executor)
	}
	return &types.Event{Type: TypePaymentDispersed, Attributes: attrs}
}

// ExecutorRewarded represents an incentive payout to a privileged executor.
type ExecutorRewarded struct {
	Executor []byte
	Token    string
	Amount   *big.Int
	Kind     string
}

// EventType satisfies the events.Event interface.
func (ExecutorRewarded) EventType() string { return TypeExecutorRewarded }

// Event converts the structured payload into a wire-friendly representation.
func (e ExecutorRewarded) Event() *types.Event {
	attrs := map[string]string{
		"token":  strings.ToUpper(e.Token),
		"amount": bigString(e.Amount),
	}
	if e.Kind != "" {
		attrs["operation"] = e.Kind
	}
	if len(e.Executor) > 0 {
		attrs["executor"] = hex.EncodeToString(e.Executor)
	}
	return &types.Event{Type: TypeExecutorRewarded, Attributes: attrs}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
