package payments

import (
	"math/big"

	"corepay/core/events"
)

// OpKind identifies which operation shape triggered an incentive payout.
type OpKind uint8

const (
	OpPay OpKind = iota
	OpBatchItem
	OpMultipleItem
	OpDisperse
)

func (k OpKind) String() string {
	switch k {
	case OpPay:
		return "pay"
	case OpBatchItem:
		return "batchPay"
	case OpMultipleItem:
		return "payMultiple"
	case OpDisperse:
		return "dispersePay"
	}
	return "unknown"
}

// rewardMultiple is the protocol-fixed payout table. The multiple scales the
// reward unit per operation kind, one step higher when the request carried a
// priority fee. The values are constants of the protocol, not configuration.
func rewardMultiple(kind OpKind, feePresent bool) int64 {
	switch kind {
	case OpPay, OpBatchItem:
		if feePresent {
			return 2
		}
		return 1
	case OpMultipleItem:
		if feePresent {
			return 3
		}
		return 2
	case OpDisperse:
		if feePresent {
			return 5
		}
		return 4
	}
	return 0
}

// rewardAmount scales the oracle's reward unit by the fixed multiple for the
// operation kind.
func (e *Engine) rewardAmount(kind OpKind, feePresent bool) (*big.Int, error) {
	unit, err := e.oracle.RewardUnit(e.rewardToken)
	if err != nil {
		return nil, err
	}
	if unit == nil || unit.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).Mul(unit, big.NewInt(rewardMultiple(kind, feePresent))), nil
}

// payoutReward credits the executor with the scaled reward in the designated
// reward token. A zero reward unit disables payouts entirely.
func (e *Engine) payoutReward(executor [20]byte, amount *big.Int, kind OpKind) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	if err := e.state.Credit(executor, e.rewardToken, amount); err != nil {
		return err
	}
	e.emit(events.ExecutorRewarded{
		Executor: executor[:],
		Token:    e.rewardToken,
		Amount:   amount,
		Kind:     kind.String(),
	})
	return nil
}
