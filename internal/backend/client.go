package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrNotConfirmed marks a deposit-confirm response the caller should
// retry: the backend has not seen the transaction yet or it lacks
// confirmations. Any other backend failure is terminal.
var ErrNotConfirmed = errors.New("deposit not confirmed yet")

const (
	headerWallet    = "X-Wallet-Address"
	headerRequestID = "X-Request-Id"
)

// Client talks to the off-chain ledger over JSON/HTTPS.
type Client struct {
	baseURL    string
	walletAddr string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, walletAddr string, timeout time.Duration, requestsPerSec float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		walletAddr: walletAddr,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

type DepositResult struct {
	DepositID  string `json:"deposit_id"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	NewBalance string `json:"new_balance"`
}

type PendingWithdrawal struct {
	WithdrawID string `json:"withdraw_id"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type WithdrawResult struct {
	WithdrawID string `json:"withdraw_id"`
	TxHash     string `json:"tx_hash"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	NewBalance string `json:"new_balance"`
}

// ConfirmDeposit asks the ledger to credit a custodial transfer.
// Responses saying the tx is unknown or under-confirmed come back as
// ErrNotConfirmed so the session's polling loop can retry.
func (c *Client) ConfirmDeposit(ctx context.Context, txHash string) (*DepositResult, error) {
	var result DepositResult
	err := c.do(ctx, http.MethodPost, "/api/v1/deposit/confirm", map[string]string{"tx_hash": txHash}, &result)
	if err != nil {
		if isRetryableConfirm(err) {
			return nil, ErrNotConfirmed
		}
		return nil, err
	}
	return &result, nil
}

// RequestWithdraw freezes ledger funds and returns the pending record.
func (c *Client) RequestWithdraw(ctx context.Context, token, amount string) (*PendingWithdrawal, error) {
	var result PendingWithdrawal
	err := c.do(ctx, http.MethodPost, "/api/v1/withdraw/request", map[string]string{
		"token":  token,
		"amount": amount,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ProcessWithdraw triggers the on-chain payout for a frozen request.
func (c *Client) ProcessWithdraw(ctx context.Context, withdrawID string) (*WithdrawResult, error) {
	var result WithdrawResult
	err := c.do(ctx, http.MethodPost, "/api/v1/withdraw/"+withdrawID+"/process", nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PendingWithdrawals fetches the caller's history filtered to the
// still-pending requests.
func (c *Client) PendingWithdrawals(ctx context.Context) ([]PendingWithdrawal, error) {
	var result struct {
		Withdrawals []PendingWithdrawal `json:"withdrawals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/withdraw/history", nil, &result); err != nil {
		return nil, err
	}

	pending := make([]PendingWithdrawal, 0, len(result.Withdrawals))
	for _, w := range result.Withdrawals {
		if w.Status == "pending" {
			pending = append(pending, w)
		}
	}
	return pending, nil
}

// CancelWithdraw deletes a request that is still pending on the backend.
func (c *Client) CancelWithdraw(ctx context.Context, withdrawID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/withdraw/"+withdrawID+"/cancel", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" {
		return apperrors.NewBackend("backend base url not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerWallet, c.walletAddr)
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewBackend("backend request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewBackend("failed to read backend response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractMessage(data)
		logger.Warn("Backend error", "method", method, "path", path, "status", resp.StatusCode, "message", msg)
		return apperrors.NewBackend(fmt.Sprintf("backend returned %d: %s", resp.StatusCode, msg), nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewBackend("invalid backend response body", err)
		}
	}
	return nil
}

func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func isRetryableConfirm(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "confirmation")
}
