package handler

import (
	"net/http"

	"github.com/GoPolymarket/polydesk/internal/model"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/signer"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	signer *signer.Signer
}

func NewOrderHandler(s *signer.Signer) *OrderHandler {
	return &OrderHandler{signer: s}
}

// SignOrder builds and signs an order without submitting it anywhere;
// submission is the caller's responsibility.
func (h *OrderHandler) SignOrder(c *gin.Context) {
	var req model.SignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput(err.Error()))
		return
	}

	schema := signer.Schema(req.Schema)
	if schema == "" {
		schema = signer.SchemaPositionToken
	}

	signed, err := h.signer.Sign(c.Request.Context(), req.Intent(), schema)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, model.NewSignedOrderResponse(signed))
}
