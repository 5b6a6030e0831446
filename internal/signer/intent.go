package signer

import (
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Wire encoding used by both verifying contracts: 0 buy, 1 sell.
func (s Side) Code() uint8 {
	if s == SideSell {
		return 1
	}
	return 0
}

type OrderKind string

const (
	KindLimit  OrderKind = "LIMIT"
	KindMarket OrderKind = "MARKET"
)

type ShareClass string

const (
	ShareYes ShareClass = "YES"
	ShareNo  ShareClass = "NO"
)

// Intent is an immutable description of a desired trade. It has no
// identity until signed; changing any field means signing a new one.
type Intent struct {
	MarketID   string
	OutcomeID  string
	TokenID    string // position-token id, supplied by the caller
	Side       Side
	Kind       OrderKind
	Price      string // decimal string
	Size       string // decimal string, in shares
	ShareClass ShareClass
}

// Validate checks the intent before any signing side effect.
func (in Intent) Validate() error {
	if in.MarketID == "" {
		return apperrors.NewInvalidInput("market id is required")
	}
	if in.Side != SideBuy && in.Side != SideSell {
		return apperrors.NewInvalidInput("side must be BUY or SELL")
	}

	size, err := decimal.NewFromString(in.Size)
	if err != nil {
		return apperrors.NewInvalidInput("size is not a valid number")
	}
	if !size.IsPositive() {
		return apperrors.NewInvalidInput("size must be positive")
	}

	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return apperrors.NewInvalidInput("price is not a valid number")
	}
	if !price.IsPositive() {
		return apperrors.NewInvalidInput("price must be positive")
	}
	if in.Kind == KindLimit {
		// Outcome prices live strictly inside (0,1).
		one := decimal.NewFromInt(1)
		if price.GreaterThanOrEqual(one) {
			return apperrors.NewInvalidInput("limit price must be below 1")
		}
	}
	return nil
}

func (in Intent) price() decimal.Decimal {
	p, _ := decimal.NewFromString(in.Price)
	return p
}

func (in Intent) size() decimal.Decimal {
	s, _ := decimal.NewFromString(in.Size)
	return s
}
