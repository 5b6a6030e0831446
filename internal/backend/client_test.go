package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "0xabc", 5*time.Second, 1000)
}

func TestConfirmDepositSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/deposit/confirm", r.URL.Path)
		assert.Equal(t, "0xabc", r.Header.Get("X-Wallet-Address"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0x123", body["tx_hash"])

		json.NewEncoder(w).Encode(DepositResult{
			DepositID: "dep-1", Amount: "50", Status: "credited", NewBalance: "150",
		})
	})

	res, err := c.ConfirmDeposit(context.Background(), "0x123")
	require.NoError(t, err)
	assert.Equal(t, "dep-1", res.DepositID)
	assert.Equal(t, "150", res.NewBalance)
}

func TestConfirmDepositNotYetSeenIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "transaction not found"})
	})

	_, err := c.ConfirmDeposit(context.Background(), "0x123")
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestConfirmDepositUnderConfirmedIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "awaiting confirmations: 3 of 12"})
	})

	_, err := c.ConfirmDeposit(context.Background(), "0x123")
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestConfirmDepositOtherErrorIsTerminal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "duplicate deposit"})
	})

	_, err := c.ConfirmDeposit(context.Background(), "0x123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.ErrBackend))
}

func TestRequestAndProcessWithdraw(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/withdraw/request":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "USDC", body["token"])
			assert.Equal(t, "25", body["amount"])
			json.NewEncoder(w).Encode(PendingWithdrawal{WithdrawID: "wd-1", Status: "pending"})
		case "/api/v1/withdraw/wd-1/process":
			json.NewEncoder(w).Encode(WithdrawResult{WithdrawID: "wd-1", TxHash: "0xfeed", Status: "complete"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	pending, err := c.RequestWithdraw(context.Background(), "USDC", "25")
	require.NoError(t, err)
	assert.Equal(t, "wd-1", pending.WithdrawID)

	res, err := c.ProcessWithdraw(context.Background(), pending.WithdrawID)
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", res.TxHash)
}

func TestPendingWithdrawalsFiltersHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/withdraw/history", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"withdrawals": []PendingWithdrawal{
				{WithdrawID: "wd-1", Status: "pending"},
				{WithdrawID: "wd-2", Status: "complete"},
				{WithdrawID: "wd-3", Status: "pending"},
				{WithdrawID: "wd-4", Status: "cancelled"},
			},
		})
	})

	pending, err := c.PendingWithdrawals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, len(pending))
	assert.Equal(t, "wd-1", pending[0].WithdrawID)
	assert.Equal(t, "wd-3", pending[1].WithdrawID)
}

func TestCancelWithdraw(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.CancelWithdraw(context.Background(), "wd-1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v1/withdraw/wd-1/cancel", gotPath)
}

func TestErrorMessageExtraction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"amount exceeds balance"}`))
	})

	err := c.do(context.Background(), http.MethodPost, "/api/v1/withdraw/request", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount exceeds balance")
	assert.Contains(t, err.Error(), "400")
}

func TestUnconfiguredBaseURL(t *testing.T) {
	c := NewClient("", "0xabc", time.Second, 10)
	_, err := c.PendingWithdrawals(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrBackend))
}
