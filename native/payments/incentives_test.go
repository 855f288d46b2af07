package payments

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewardMultipleTable(t *testing.T) {
	cases := []struct {
		kind       OpKind
		feePresent bool
		want       int64
	}{
		{OpPay, false, 1},
		{OpPay, true, 2},
		{OpBatchItem, false, 1},
		{OpBatchItem, true, 2},
		{OpMultipleItem, false, 2},
		{OpMultipleItem, true, 3},
		{OpDisperse, false, 4},
		{OpDisperse, true, 5},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, rewardMultiple(tc.kind, tc.feePresent), "%s fee=%v", tc.kind, tc.feePresent)
	}
}

func TestRewardDisabledByZeroUnit(t *testing.T) {
	env := newTestEnv(t)
	env.oracle.unit = big.NewInt(0)
	key, sender := newKey(t)
	executor := testAddr(0x03)
	env.oracle.stakers[executor] = true
	require.NoError(t, env.state.Credit(sender, testToken, big.NewInt(100)))

	req := PayRequest{
		Sender:    sender,
		Recipient: RecipientRef{Address: testAddr(0x02)},
		Token:     testToken,
		Amount:    big.NewInt(10),
		Mode:      NonceModeSequential,
	}
	signPay(t, env, key, &req)

	require.NoError(t, env.engine.Pay(executor, req))
	rewardBal, _ := env.state.Balance(executor, testRewardToken)
	require.Zero(t, rewardBal.Sign())
}

func TestRewardOnlyForPrivilegedExecutor(t *testing.T) {
	env := newTestEnv(t)
	key, sender := newKey(t)
	executor := testAddr(0x03)
	require.NoError(t, env.state.Credit(sender, testToken, big.NewInt(100)))

	req := PayRequest{
		Sender:    sender,
		Recipient: RecipientRef{Address: testAddr(0x02)},
		Token:     testToken,
		Amount:    big.NewInt(10),
		Fee:       big.NewInt(2),
		Mode:      NonceModeSequential,
	}
	signPay(t, env, key, &req)

	require.NoError(t, env.engine.Pay(executor, req))
	rewardBal, _ := env.state.Balance(executor, testRewardToken)
	require.Zero(t, rewardBal.Sign())
}

func TestOpKindString(t *testing.T) {
	require.Equal(t, "pay", OpPay.String())
	require.Equal(t, "batchPay", OpBatchItem.String())
	require.Equal(t, "payMultiple", OpMultipleItem.String())
	require.Equal(t, "dispersePay", OpDisperse.String())
	require.Equal(t, "unknown", OpKind(99).String())
}
