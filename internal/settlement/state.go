package settlement

// Mode selects how a deposit session brings collateral into tradable
// status. Fixed for the session's lifetime.
type Mode string

const (
	// ModeAllowance approves a spender, no transfer.
	ModeAllowance Mode = "allowance"
	// ModeCustodial approves then transfers to the vault, confirmed
	// against the backend ledger.
	ModeCustodial Mode = "custodial"
)

type DepositStep string

const (
	DepositIdle         DepositStep = "idle"
	DepositChecking     DepositStep = "checking"
	DepositApproving    DepositStep = "approving"
	DepositTransferring DepositStep = "transferring"
	DepositConfirming   DepositStep = "confirming"
	DepositComplete     DepositStep = "complete"
	DepositError        DepositStep = "error"
)

type WithdrawStep string

const (
	WithdrawIdle       WithdrawStep = "idle"
	WithdrawRequesting WithdrawStep = "requesting"
	WithdrawProcessing WithdrawStep = "processing"
	WithdrawComplete   WithdrawStep = "complete"
	WithdrawError      WithdrawStep = "error"
)

type Event string

const (
	EventStart     Event = "start"
	EventSkip      Event = "skip" // precondition already satisfied
	EventApprove   Event = "approve"
	EventTransfer  Event = "transfer"
	EventConfirm   Event = "confirm"
	EventSettle    Event = "settle"
	EventProcess   Event = "process"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// depositTransitions is the deposit state graph. Transitions only move
// forward within an attempt; a completed session restarts from the
// checks, and only error is terminal until an explicit reset.
var depositTransitions = map[DepositStep]map[Event]DepositStep{
	DepositIdle: {
		EventStart: DepositChecking,
	},
	DepositChecking: {
		EventSkip:     DepositComplete,
		EventApprove:  DepositApproving,
		EventTransfer: DepositTransferring,
		EventFail:     DepositError,
	},
	DepositApproving: {
		EventConfirm:  DepositConfirming,
		EventTransfer: DepositTransferring,
		EventFail:     DepositError,
	},
	DepositTransferring: {
		EventConfirm: DepositConfirming,
		EventFail:    DepositError,
	},
	DepositConfirming: {
		EventSettle: DepositComplete,
		EventFail:   DepositError,
	},
	DepositComplete: {
		EventStart: DepositChecking,
		EventReset: DepositIdle,
	},
	DepositError: {
		EventReset: DepositIdle,
	},
}

// NextDepositStep is the pure transition function for the deposit
// state machine. It returns the current step unchanged when the event
// is not legal from it.
func NextDepositStep(step DepositStep, event Event) (DepositStep, bool) {
	next, ok := depositTransitions[step][event]
	if !ok {
		return step, false
	}
	return next, true
}

var withdrawTransitions = map[WithdrawStep]map[Event]WithdrawStep{
	WithdrawIdle: {
		EventStart: WithdrawRequesting,
	},
	WithdrawRequesting: {
		EventProcess: WithdrawProcessing,
		EventFail:    WithdrawError,
	},
	WithdrawProcessing: {
		EventSettle: WithdrawComplete,
		EventFail:   WithdrawError,
	},
	WithdrawComplete: {
		EventStart: WithdrawRequesting,
		EventReset: WithdrawIdle,
	},
	WithdrawError: {
		EventReset: WithdrawIdle,
	},
}

// NextWithdrawStep is the pure transition function for the withdraw
// state machine.
func NextWithdrawStep(step WithdrawStep, event Event) (WithdrawStep, bool) {
	next, ok := withdrawTransitions[step][event]
	if !ok {
		return step, false
	}
	return next, true
}

// DepositStepLabel renders a mode-aware human label so the UI can
// show progress without reimplementing the state machine.
func DepositStepLabel(mode Mode, step DepositStep) string {
	switch step {
	case DepositIdle:
		return "Ready"
	case DepositChecking:
		return "Checking balance and allowance"
	case DepositApproving:
		return "Waiting for approval transaction"
	case DepositTransferring:
		return "Transferring collateral to the vault"
	case DepositConfirming:
		if mode == ModeCustodial {
			return "Waiting for ledger confirmation"
		}
		return "Waiting for allowance confirmation"
	case DepositComplete:
		if mode == ModeCustodial {
			return "Deposit credited"
		}
		return "Collateral unlocked for trading"
	case DepositError:
		return "Deposit failed"
	}
	return string(step)
}

func WithdrawStepLabel(step WithdrawStep) string {
	switch step {
	case WithdrawIdle:
		return "Ready"
	case WithdrawRequesting:
		return "Freezing ledger balance"
	case WithdrawProcessing:
		return "Requesting on-chain payout"
	case WithdrawComplete:
		return "Withdrawal complete"
	case WithdrawError:
		return "Withdrawal failed"
	}
	return string(step)
}
