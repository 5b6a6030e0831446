package handler

import (
	"net/http"

	"github.com/GoPolymarket/polydesk/internal/model"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/settlement"
	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	deposit  *settlement.DepositSession
	withdraw *settlement.WithdrawSession
}

func NewSettlementHandler(d *settlement.DepositSession, w *settlement.WithdrawSession) *SettlementHandler {
	return &SettlementHandler{deposit: d, withdraw: w}
}

func (h *SettlementHandler) Deposit(c *gin.Context) {
	var req model.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}

	result, err := h.deposit.Deposit(c.Request.Context(), req.Amount)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SettlementHandler) DepositState(c *gin.Context) {
	c.JSON(http.StatusOK, h.deposit.State())
}

func (h *SettlementHandler) ResetDeposit(c *gin.Context) {
	h.deposit.Reset()
	c.JSON(http.StatusOK, h.deposit.State())
}

func (h *SettlementHandler) Withdraw(c *gin.Context) {
	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}

	result, err := h.withdraw.Withdraw(c.Request.Context(), req.Amount)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SettlementHandler) WithdrawState(c *gin.Context) {
	c.JSON(http.StatusOK, h.withdraw.State())
}

func (h *SettlementHandler) ResetWithdraw(c *gin.Context) {
	h.withdraw.Reset()
	c.JSON(http.StatusOK, h.withdraw.State())
}

func (h *SettlementHandler) PendingWithdrawals(c *gin.Context) {
	pending, err := h.withdraw.Pending(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": pending})
}

func (h *SettlementHandler) CancelWithdrawal(c *gin.Context) {
	id := c.Param("id")
	pending, err := h.withdraw.Cancel(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": pending})
}
