package settlement

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/GoPolymarket/polydesk/internal/backend"
	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChain plays both token reader and writer. Approve bumps the
// allowance when confirmApprovals is set, mimicking a mined tx.
type fakeChain struct {
	mu               sync.Mutex
	balance          *big.Int
	allowance        *big.Int
	confirmApprovals bool
	approveErr       error
	transferErr      error

	calls          []string
	approvedAmount *big.Int
	transferredTo  common.Address
	transferred    *big.Int
}

func (f *fakeChain) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeChain) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "approve")
	if f.approveErr != nil {
		return common.Hash{}, f.approveErr
	}
	f.approvedAmount = new(big.Int).Set(amount)
	if f.confirmApprovals {
		f.allowance = new(big.Int).Set(amount)
	}
	return common.HexToHash("0xaa"), nil
}

func (f *fakeChain) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "transfer")
	if f.transferErr != nil {
		return common.Hash{}, f.transferErr
	}
	f.transferredTo = to
	f.transferred = new(big.Int).Set(amount)
	return common.HexToHash("0xbb"), nil
}

// fakeLedger answers deposit confirmations after a configurable number
// of not-yet responses.
type fakeLedger struct {
	mu           sync.Mutex
	notConfirmed int
	confirmErr   error
	result       *backend.DepositResult
	confirms     int
}

func (f *fakeLedger) ConfirmDeposit(ctx context.Context, txHash string) (*backend.DepositResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if f.notConfirmed > 0 {
		f.notConfirmed--
		return nil, backend.ErrNotConfirmed
	}
	return f.result, nil
}

func sessionWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := wallet.FromPrivateKey(hexutil.Encode(crypto.FromECDSA(key)))
	require.NoError(t, err)
	return w
}

func fastPolls() DepositConfig {
	return DepositConfig{
		AllowancePollEvery: time.Millisecond,
		AllowancePollTries: 3,
		ConfirmPollEvery:   time.Millisecond,
		ConfirmPollTries:   5,
	}
}

func usdc(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), big.NewInt(1_000_000))
}

func TestDepositAllowanceSkipsWhenAlreadyApproved(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: usdc(1000)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	res, err := s.Deposit(context.Background(), "50")
	require.NoError(t, err)

	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, DepositComplete, s.State().Step)
	assert.Empty(t, fc.calls, "no approval tx when the allowance already covers the amount")
}

func TestDepositAllowanceApprovesUnlimited(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0), confirmApprovals: true}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	res, err := s.Deposit(context.Background(), "50")
	require.NoError(t, err)

	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, []string{"approve"}, fc.calls)
	assert.Equal(t, 0, fc.approvedAmount.Cmp(chain.MaxUint256))
	assert.Equal(t, DepositComplete, s.State().Step)
}

func TestDepositRepeatAfterCompleteNeedsNoReset(t *testing.T) {
	fc := &fakeChain{balance: usdc(1000), allowance: big.NewInt(0), confirmApprovals: true}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	res, err := s.Deposit(context.Background(), "100")
	require.NoError(t, err)
	require.Equal(t, "complete", res.Status)
	require.Equal(t, DepositComplete, s.State().Step)

	// Same amount again, no Reset in between: the standing unlimited
	// approval makes the second run skip straight through.
	res, err = s.Deposit(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, DepositComplete, s.State().Step)
	assert.Equal(t, []string{"approve"}, fc.calls, "only the first run may send an approval")
}

func TestDepositAllowancePollExhaustionIsError(t *testing.T) {
	// Approval submits but the allowance never moves on chain.
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0), confirmApprovals: false}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrConfirmationTimeout))
	st := s.State()
	assert.Equal(t, DepositError, st.Step)
	assert.NotEmpty(t, st.Error)
}

func TestDepositInsufficientBalance(t *testing.T) {
	fc := &fakeChain{balance: usdc(10), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientFunds))
	assert.Equal(t, DepositError, s.State().Step)
	assert.Empty(t, fc.calls, "no tx may be sent when preconditions fail")
}

func TestDepositInvalidAmount(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "-5")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	s.Reset()
	_, err = s.Deposit(context.Background(), "abc")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestDepositWalletNotConnected(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, nil, chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	assert.True(t, apperrors.Is(err, apperrors.ErrWalletNotConnected))
}

func TestDepositRejectsConcurrentAttempt(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	s.mu.Lock()
	s.step = DepositConfirming
	s.mu.Unlock()

	_, err := s.Deposit(context.Background(), "50")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionBusy))
}

func TestDepositErrorStateClearsOnReset(t *testing.T) {
	fc := &fakeChain{balance: usdc(10), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	require.Error(t, err)
	require.Equal(t, DepositError, s.State().Step)

	// A new attempt without reset is still refused.
	_, err = s.Deposit(context.Background(), "5")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionBusy))

	s.Reset()
	st := s.State()
	assert.Equal(t, DepositIdle, st.Step)
	assert.Empty(t, st.Error)

	fc.mu.Lock()
	fc.allowance = usdc(100)
	fc.mu.Unlock()
	_, err = s.Deposit(context.Background(), "5")
	assert.NoError(t, err)
}

func TestDepositCustodialApprovesBeforeTransfer(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0), confirmApprovals: true}
	ledger := &fakeLedger{
		notConfirmed: 2,
		result: &backend.DepositResult{
			DepositID:  "dep-1",
			Amount:     "50",
			Status:     "credited",
			NewBalance: "150",
		},
	}
	s := NewDepositSession(ModeCustodial, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, ledger, fastPolls())

	res, err := s.Deposit(context.Background(), "50")
	require.NoError(t, err)

	assert.Equal(t, []string{"approve", "transfer"}, fc.calls)
	assert.Equal(t, usdc(50), fc.transferred, "transfer moves the exact amount, not the unlimited approval")

	vault, _ := chain.NewNetworks(nil).Vault(137)
	assert.Equal(t, vault, fc.transferredTo)

	assert.Equal(t, "dep-1", res.DepositID)
	assert.Equal(t, 3, ledger.confirms, "two not-yet responses then the credit")
	assert.Equal(t, DepositComplete, s.State().Step)
}

func TestDepositCustodialSkipsApproveWithAllowance(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: usdc(500)}
	ledger := &fakeLedger{result: &backend.DepositResult{DepositID: "dep-2", Status: "credited"}}
	s := NewDepositSession(ModeCustodial, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, ledger, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	require.NoError(t, err)

	assert.Equal(t, []string{"transfer"}, fc.calls)
}

func TestDepositCustodialConfirmExhaustionIsError(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: usdc(500)}
	ledger := &fakeLedger{notConfirmed: 1000}
	s := NewDepositSession(ModeCustodial, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, ledger, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	require.Error(t, err)

	// Exhausting the polling budget must never report success.
	assert.True(t, apperrors.Is(err, apperrors.ErrConfirmationTimeout))
	assert.Equal(t, DepositError, s.State().Step)
}

func TestDepositCustodialBackendFailureIsTerminal(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: usdc(500)}
	ledger := &fakeLedger{confirmErr: apperrors.NewBackend("ledger rejected the transfer", nil)}
	s := NewDepositSession(ModeCustodial, sessionWallet(t), chain.NewNetworks(nil), 137,
		fc, fc, ledger, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	assert.True(t, apperrors.Is(err, apperrors.ErrBackend))
	assert.Equal(t, 1, ledger.confirms, "terminal backend errors are not retried")
}

func TestDepositUnsupportedNetwork(t *testing.T) {
	fc := &fakeChain{balance: usdc(100), allowance: big.NewInt(0)}
	s := NewDepositSession(ModeAllowance, sessionWallet(t), chain.NewNetworks(nil), 424242,
		fc, fc, &fakeLedger{}, fastPolls())

	_, err := s.Deposit(context.Background(), "50")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnsupportedNetwork))
}
