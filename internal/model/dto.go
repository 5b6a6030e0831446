package model

import (
	"github.com/GoPolymarket/polydesk/internal/signer"
)

// SignOrderRequest represents the incoming JSON body
type SignOrderRequest struct {
	MarketID   string `json:"market_id" binding:"required"`
	OutcomeID  string `json:"outcome_id"`
	TokenID    string `json:"token_id"`
	Side       string `json:"side" binding:"required,oneof=BUY SELL"`
	OrderKind  string `json:"order_kind,omitempty"` // LIMIT/MARKET
	Price      string `json:"price" binding:"required"`
	Size       string `json:"size" binding:"required"`
	ShareClass string `json:"share_class,omitempty"` // YES/NO
	Schema     string `json:"schema,omitempty"`      // generic/position-token
}

func (r SignOrderRequest) Intent() signer.Intent {
	kind := signer.OrderKind(r.OrderKind)
	if kind == "" {
		kind = signer.KindLimit
	}
	share := signer.ShareClass(r.ShareClass)
	if share == "" {
		share = signer.ShareYes
	}
	return signer.Intent{
		MarketID:   r.MarketID,
		OutcomeID:  r.OutcomeID,
		TokenID:    r.TokenID,
		Side:       signer.Side(r.Side),
		Kind:       kind,
		Price:      r.Price,
		Size:       r.Size,
		ShareClass: share,
	}
}

// PositionOrderJSON is the wire shape of a signed position-token
// order: integers rendered as decimal strings.
type PositionOrderJSON struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`
	SignatureType int    `json:"signatureType"`
}

type SignedOrderResponse struct {
	Schema     string               `json:"schema"`
	Maker      string               `json:"maker"`
	Nonce      string               `json:"nonce"`
	Expiration string               `json:"expiration"`
	Signature  string               `json:"signature"`
	Generic    *signer.GenericOrder `json:"generic,omitempty"`
	Position   *PositionOrderJSON   `json:"position,omitempty"`
}

func NewSignedOrderResponse(o *signer.SignedOrder) SignedOrderResponse {
	resp := SignedOrderResponse{
		Schema:     string(o.Schema),
		Maker:      o.Maker.Hex(),
		Nonce:      o.Nonce.String(),
		Expiration: o.Expiration.String(),
		Signature:  o.Signature,
		Generic:    o.Generic,
	}
	if o.Position != nil {
		p := o.Position
		resp.Position = &PositionOrderJSON{
			Salt:          p.Salt.String(),
			Maker:         p.Maker.Hex(),
			Signer:        p.Signer.Hex(),
			Taker:         p.Taker.Hex(),
			TokenID:       p.TokenID.String(),
			MakerAmount:   p.MakerAmount.String(),
			TakerAmount:   p.TakerAmount.String(),
			Expiration:    p.Expiration.String(),
			Nonce:         p.Nonce.String(),
			FeeRateBps:    p.FeeRateBps.String(),
			Side:          int(p.Side),
			SignatureType: int(p.SignatureType),
		}
	}
	return resp
}

type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type WithdrawRequest struct {
	Amount string `json:"amount" binding:"required"`
}
