package settlement

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/GoPolymarket/polydesk/internal/backend"
	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/pkg/metrics"
	"github.com/GoPolymarket/polydesk/internal/pkg/poll"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DepositBackend is the slice of the ledger API a deposit needs.
type DepositBackend interface {
	ConfirmDeposit(ctx context.Context, txHash string) (*backend.DepositResult, error)
}

// DepositConfig bounds the two polling loops.
type DepositConfig struct {
	AllowancePollEvery time.Duration
	AllowancePollTries int
	ConfirmPollEvery   time.Duration
	ConfirmPollTries   int
}

func (c DepositConfig) withDefaults() DepositConfig {
	if c.AllowancePollEvery <= 0 {
		c.AllowancePollEvery = 2 * time.Second
	}
	if c.AllowancePollTries <= 0 {
		c.AllowancePollTries = 30
	}
	if c.ConfirmPollEvery <= 0 {
		c.ConfirmPollEvery = 3 * time.Second
	}
	if c.ConfirmPollTries <= 0 {
		c.ConfirmPollTries = 30
	}
	return c
}

// DepositState is the caller-visible snapshot of a session.
type DepositState struct {
	Step  DepositStep `json:"step"`
	Label string      `json:"label"`
	Error string      `json:"error,omitempty"`
}

// DepositSession owns one deposit attempt at a time. Steps execute
// strictly sequentially; no two chain writes are ever in flight from
// the same session.
type DepositSession struct {
	mode     Mode
	wallet   *wallet.Wallet
	networks *chain.Networks
	chainID  int64
	reader   chain.TokenReader
	writer   chain.TokenWriter
	backend  DepositBackend
	cfg      DepositConfig

	mu      sync.Mutex
	step    DepositStep
	lastErr error
	gen     uint64
}

func NewDepositSession(mode Mode, w *wallet.Wallet, networks *chain.Networks, chainID int64,
	reader chain.TokenReader, writer chain.TokenWriter, be DepositBackend, cfg DepositConfig) *DepositSession {
	return &DepositSession{
		mode:     mode,
		wallet:   w,
		networks: networks,
		chainID:  chainID,
		reader:   reader,
		writer:   writer,
		backend:  be,
		cfg:      cfg.withDefaults(),
		step:     DepositIdle,
	}
}

// State returns the current step with its mode-aware label.
func (s *DepositSession) State() DepositState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := DepositState{
		Step:  s.step,
		Label: DepositStepLabel(s.mode, s.step),
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Reset returns the session to idle and invalidates any late poll
// results from a previous attempt.
func (s *DepositSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.step = DepositIdle
	s.lastErr = nil
}

// advance applies event through the pure transition function, but
// only if the session generation is still gen. A torn-down session
// never mutates state after teardown.
func (s *DepositSession) advance(gen uint64, event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	next, ok := NextDepositStep(s.step, event)
	if !ok {
		return false
	}
	s.step = next
	return true
}

func (s *DepositSession) fail(gen uint64, err error) error {
	appErr := apperrors.Wrap(err)
	s.mu.Lock()
	if s.gen == gen {
		if next, ok := NextDepositStep(s.step, EventFail); ok {
			s.step = next
		}
		s.lastErr = appErr
	}
	s.mu.Unlock()

	metrics.Deposits.WithLabelValues(string(s.mode), "error").Inc()
	return appErr
}

// Deposit brings `amount` of collateral into tradable status. A
// completed session restarts from the checks, so repeating a deposit
// whose allowance already stands is a cheap no-op. Calling Deposit
// while a prior call is in flight is a caller error.
func (s *DepositSession) Deposit(ctx context.Context, amount string) (*backend.DepositResult, error) {
	s.mu.Lock()
	next, ok := NextDepositStep(s.step, EventStart)
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewSessionBusy("a deposit is already in flight; check State() and Reset() first")
	}
	gen := s.gen
	s.step = next
	s.lastErr = nil
	s.mu.Unlock()

	// Preconditions, all before any side effect.
	if !s.wallet.Connected() {
		return nil, s.fail(gen, apperrors.NewWalletNotConnected())
	}
	token, err := s.networks.CollateralToken(s.chainID)
	if err != nil {
		return nil, s.fail(gen, err)
	}
	spender, err := s.spender()
	if err != nil {
		return nil, s.fail(gen, err)
	}
	units, err := parseAmount(amount)
	if err != nil {
		return nil, s.fail(gen, err)
	}

	owner := s.wallet.Address()
	balance, err := s.reader.BalanceOf(ctx, token, owner)
	if err != nil {
		return nil, s.fail(gen, err)
	}
	if balance.Cmp(units) < 0 {
		return nil, s.fail(gen, apperrors.NewInsufficientFunds("on-chain balance below requested amount"))
	}

	allowance, err := s.reader.Allowance(ctx, token, owner, spender)
	if err != nil {
		return nil, s.fail(gen, err)
	}

	if s.mode == ModeCustodial {
		return s.runCustodial(ctx, gen, token, owner, spender, units, allowance, amount)
	}
	return s.runAllowance(ctx, gen, token, owner, spender, units, allowance, amount)
}

func (s *DepositSession) runAllowance(ctx context.Context, gen uint64, token, owner, spender common.Address,
	units, allowance *big.Int, amount string) (*backend.DepositResult, error) {

	// Idempotence: an earlier unlimited approval makes this a no-op.
	if allowance.Cmp(units) >= 0 {
		s.advance(gen, EventSkip)
		metrics.Deposits.WithLabelValues(string(s.mode), "complete").Inc()
		return &backend.DepositResult{Amount: amount, Status: "complete"}, nil
	}

	s.advance(gen, EventApprove)
	// Unlimited approval avoids repeated approval transactions on
	// later deposits; the standing allowance risk is disclosed to the
	// user by the surrounding UI.
	txHash, err := s.writer.Approve(ctx, token, spender, chain.MaxUint256)
	if err != nil {
		return nil, s.fail(gen, err)
	}
	logger.Info("Approval submitted", "tx", txHash.Hex(), "spender", spender.Hex())

	s.advance(gen, EventConfirm)
	err = poll.Until(ctx, s.cfg.AllowancePollEvery, s.cfg.AllowancePollTries, func(ctx context.Context) (bool, error) {
		current, err := s.reader.Allowance(ctx, token, owner, spender)
		if err != nil {
			// Transient read failures should not abort the wait.
			logger.Warn("Allowance poll failed", "error", err)
			return false, nil
		}
		return current.Cmp(units) >= 0, nil
	})
	if err != nil {
		// The postcondition was never observed; this must be an
		// error, not an optimistic success.
		if err == poll.ErrExhausted {
			return nil, s.fail(gen, apperrors.NewConfirmationTimeout("allowance not confirmed within polling budget"))
		}
		return nil, s.fail(gen, err)
	}

	s.advance(gen, EventSettle)
	metrics.Deposits.WithLabelValues(string(s.mode), "complete").Inc()
	return &backend.DepositResult{Amount: amount, Status: "complete"}, nil
}

func (s *DepositSession) runCustodial(ctx context.Context, gen uint64, token, owner, spender common.Address,
	units, allowance *big.Int, amount string) (*backend.DepositResult, error) {

	if allowance.Cmp(units) < 0 {
		s.advance(gen, EventApprove)
		txHash, err := s.writer.Approve(ctx, token, spender, chain.MaxUint256)
		if err != nil {
			return nil, s.fail(gen, err)
		}
		logger.Info("Approval submitted", "tx", txHash.Hex(), "spender", spender.Hex())

		// Approve must confirm before the transfer is attempted.
		err = poll.Until(ctx, s.cfg.AllowancePollEvery, s.cfg.AllowancePollTries, func(ctx context.Context) (bool, error) {
			current, err := s.reader.Allowance(ctx, token, owner, spender)
			if err != nil {
				logger.Warn("Allowance poll failed", "error", err)
				return false, nil
			}
			return current.Cmp(units) >= 0, nil
		})
		if err != nil {
			if err == poll.ErrExhausted {
				return nil, s.fail(gen, apperrors.NewConfirmationTimeout("allowance not confirmed within polling budget"))
			}
			return nil, s.fail(gen, err)
		}
	}

	s.advance(gen, EventTransfer)
	txHash, err := s.writer.Transfer(ctx, token, spender, units)
	if err != nil {
		return nil, s.fail(gen, err)
	}
	logger.Info("Vault transfer submitted", "tx", txHash.Hex(), "vault", spender.Hex())

	s.advance(gen, EventConfirm)
	var result *backend.DepositResult
	err = poll.Until(ctx, s.cfg.ConfirmPollEvery, s.cfg.ConfirmPollTries, func(ctx context.Context) (bool, error) {
		res, err := s.backend.ConfirmDeposit(ctx, txHash.Hex())
		if err != nil {
			if err == backend.ErrNotConfirmed {
				return false, nil
			}
			return false, err
		}
		result = res
		return true, nil
	})
	if err != nil {
		if err == poll.ErrExhausted {
			return nil, s.fail(gen, apperrors.NewConfirmationTimeout("ledger did not confirm the deposit within polling budget"))
		}
		return nil, s.fail(gen, err)
	}

	s.advance(gen, EventSettle)
	metrics.Deposits.WithLabelValues(string(s.mode), "complete").Inc()
	return result, nil
}

func (s *DepositSession) spender() (common.Address, error) {
	if s.mode == ModeCustodial {
		return s.networks.Vault(s.chainID)
	}
	return s.networks.Exchange(s.chainID)
}

func parseAmount(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, apperrors.NewInvalidInput("amount is not a valid number")
	}
	if !d.IsPositive() {
		return nil, apperrors.NewInvalidInput("amount must be positive")
	}
	return d.Mul(decimal.New(1, 6)).Floor().BigInt(), nil
}
