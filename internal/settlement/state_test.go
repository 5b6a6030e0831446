package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepositTransitionsForwardOnly(t *testing.T) {
	step, ok := NextDepositStep(DepositIdle, EventStart)
	assert.True(t, ok)
	assert.Equal(t, DepositChecking, step)

	step, ok = NextDepositStep(DepositChecking, EventApprove)
	assert.True(t, ok)
	assert.Equal(t, DepositApproving, step)

	step, ok = NextDepositStep(DepositApproving, EventConfirm)
	assert.True(t, ok)
	assert.Equal(t, DepositConfirming, step)

	step, ok = NextDepositStep(DepositConfirming, EventSettle)
	assert.True(t, ok)
	assert.Equal(t, DepositComplete, step)

	// A completed session restarts from the checks, never mid-flow.
	step, ok = NextDepositStep(DepositComplete, EventStart)
	assert.True(t, ok)
	assert.Equal(t, DepositChecking, step)

	_, ok = NextDepositStep(DepositConfirming, EventApprove)
	assert.False(t, ok)
	_, ok = NextDepositStep(DepositComplete, EventApprove)
	assert.False(t, ok)
}

func TestDepositSkipWhenAlreadySatisfied(t *testing.T) {
	step, ok := NextDepositStep(DepositChecking, EventSkip)
	assert.True(t, ok)
	assert.Equal(t, DepositComplete, step)
}

func TestDepositErrorTerminalUntilReset(t *testing.T) {
	for _, ev := range []Event{EventStart, EventApprove, EventConfirm, EventSettle} {
		step, ok := NextDepositStep(DepositError, ev)
		assert.False(t, ok, "event %s must not leave error", ev)
		assert.Equal(t, DepositError, step)
	}

	step, ok := NextDepositStep(DepositError, EventReset)
	assert.True(t, ok)
	assert.Equal(t, DepositIdle, step)
}

func TestWithdrawTransitions(t *testing.T) {
	step, ok := NextWithdrawStep(WithdrawIdle, EventStart)
	assert.True(t, ok)
	assert.Equal(t, WithdrawRequesting, step)

	step, ok = NextWithdrawStep(WithdrawRequesting, EventProcess)
	assert.True(t, ok)
	assert.Equal(t, WithdrawProcessing, step)

	step, ok = NextWithdrawStep(WithdrawProcessing, EventSettle)
	assert.True(t, ok)
	assert.Equal(t, WithdrawComplete, step)

	step, ok = NextWithdrawStep(WithdrawComplete, EventStart)
	assert.True(t, ok)
	assert.Equal(t, WithdrawRequesting, step)

	step, ok = NextWithdrawStep(WithdrawError, EventReset)
	assert.True(t, ok)
	assert.Equal(t, WithdrawIdle, step)
}

func TestDepositStepLabelModeAware(t *testing.T) {
	assert.Equal(t, "Waiting for ledger confirmation", DepositStepLabel(ModeCustodial, DepositConfirming))
	assert.Equal(t, "Waiting for allowance confirmation", DepositStepLabel(ModeAllowance, DepositConfirming))
	assert.Equal(t, "Deposit credited", DepositStepLabel(ModeCustodial, DepositComplete))
	assert.Equal(t, "Collateral unlocked for trading", DepositStepLabel(ModeAllowance, DepositComplete))
}
