package settlement

import (
	"context"
	"sync"

	"github.com/GoPolymarket/polydesk/internal/backend"
	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/pkg/metrics"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/shopspring/decimal"
)

// WithdrawBackend is the slice of the ledger API a withdrawal needs.
type WithdrawBackend interface {
	RequestWithdraw(ctx context.Context, token, amount string) (*backend.PendingWithdrawal, error)
	ProcessWithdraw(ctx context.Context, withdrawID string) (*backend.WithdrawResult, error)
	PendingWithdrawals(ctx context.Context) ([]backend.PendingWithdrawal, error)
	CancelWithdraw(ctx context.Context, withdrawID string) error
}

type WithdrawState struct {
	Step  WithdrawStep `json:"step"`
	Label string       `json:"label"`
	Error string       `json:"error,omitempty"`
}

// WithdrawSession freezes a ledger balance, requests on-chain payout,
// and reconciles completion.
type WithdrawSession struct {
	token    string
	wallet   *wallet.Wallet
	networks *chain.Networks
	chainID  int64
	backend  WithdrawBackend

	mu      sync.Mutex
	step    WithdrawStep
	lastErr error
	gen     uint64
}

func NewWithdrawSession(token string, w *wallet.Wallet, networks *chain.Networks, chainID int64, be WithdrawBackend) *WithdrawSession {
	return &WithdrawSession{
		token:    token,
		wallet:   w,
		networks: networks,
		chainID:  chainID,
		backend:  be,
		step:     WithdrawIdle,
	}
}

func (s *WithdrawSession) State() WithdrawState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := WithdrawState{
		Step:  s.step,
		Label: WithdrawStepLabel(s.step),
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

func (s *WithdrawSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.step = WithdrawIdle
	s.lastErr = nil
}

func (s *WithdrawSession) advance(gen uint64, event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	next, ok := NextWithdrawStep(s.step, event)
	if !ok {
		return false
	}
	s.step = next
	return true
}

func (s *WithdrawSession) fail(gen uint64, err error) error {
	appErr := apperrors.Wrap(err)
	s.mu.Lock()
	if s.gen == gen {
		if next, ok := NextWithdrawStep(s.step, EventFail); ok {
			s.step = next
		}
		s.lastErr = appErr
	}
	s.mu.Unlock()

	metrics.Withdrawals.WithLabelValues("error").Inc()
	return appErr
}

func (s *WithdrawSession) validate(amount string) error {
	if !s.wallet.Connected() {
		return apperrors.NewWalletNotConnected()
	}
	if _, err := s.networks.CollateralToken(s.chainID); err != nil {
		return err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return apperrors.NewInvalidInput("amount is not a valid number")
	}
	if !d.IsPositive() {
		return apperrors.NewInvalidInput("amount must be positive")
	}
	return nil
}

// Withdraw chains the two backend round trips unconditionally.
// Callers needing to inspect the frozen amount first use Request and
// Process directly.
func (s *WithdrawSession) Withdraw(ctx context.Context, amount string) (*backend.WithdrawResult, error) {
	s.mu.Lock()
	next, ok := NextWithdrawStep(s.step, EventStart)
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewSessionBusy("a withdrawal is already in flight; check State() and Reset() first")
	}
	gen := s.gen
	s.step = next
	s.lastErr = nil
	s.mu.Unlock()

	if err := s.validate(amount); err != nil {
		return nil, s.fail(gen, err)
	}

	pending, err := s.backend.RequestWithdraw(ctx, s.token, amount)
	if err != nil {
		return nil, s.fail(gen, err)
	}
	logger.Info("Withdrawal requested", "withdraw_id", pending.WithdrawID, "amount", amount)

	s.advance(gen, EventProcess)
	result, err := s.backend.ProcessWithdraw(ctx, pending.WithdrawID)
	if err != nil {
		return nil, s.fail(gen, err)
	}

	s.advance(gen, EventSettle)
	metrics.Withdrawals.WithLabelValues("complete").Inc()
	logger.Info("Withdrawal processed", "withdraw_id", result.WithdrawID, "tx", result.TxHash)
	return result, nil
}

// Request freezes ledger funds without triggering the payout.
func (s *WithdrawSession) Request(ctx context.Context, amount string) (*backend.PendingWithdrawal, error) {
	if err := s.validate(amount); err != nil {
		return nil, err
	}
	return s.backend.RequestWithdraw(ctx, s.token, amount)
}

// Process triggers the on-chain payout for a previously frozen
// request.
func (s *WithdrawSession) Process(ctx context.Context, withdrawID string) (*backend.WithdrawResult, error) {
	if withdrawID == "" {
		return nil, apperrors.NewInvalidInput("withdraw id is required")
	}
	return s.backend.ProcessWithdraw(ctx, withdrawID)
}

// Cancel deletes a still-pending request, then refreshes and returns
// the outstanding list.
func (s *WithdrawSession) Cancel(ctx context.Context, withdrawID string) ([]backend.PendingWithdrawal, error) {
	if withdrawID == "" {
		return nil, apperrors.NewInvalidInput("withdraw id is required")
	}
	if err := s.backend.CancelWithdraw(ctx, withdrawID); err != nil {
		return nil, err
	}
	return s.backend.PendingWithdrawals(ctx)
}

// Pending is a read-only refresh of the caller's frozen requests.
func (s *WithdrawSession) Pending(ctx context.Context) ([]backend.PendingWithdrawal, error) {
	return s.backend.PendingWithdrawals(ctx)
}
