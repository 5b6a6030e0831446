package signer

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FixedPointDecimals is the collateral token's fixed-point base
// exponent (USDC-style 6 decimals).
const FixedPointDecimals = 6

var fixedPointBase = decimal.New(1, FixedPointDecimals)

// ToFixedPoint scales a decimal amount to integer base units,
// flooring. Flooring never over-commits the signer's funds; rounding
// up would.
func ToFixedPoint(v decimal.Decimal) *big.Int {
	return v.Mul(fixedPointBase).Floor().BigInt()
}

// SplitAmounts derives the maker/taker amounts for a position-token
// order. For a buy the maker pays price*size collateral units and
// takes size share units; for a sell the roles invert.
func SplitAmounts(side Side, price, size decimal.Decimal) (makerAmount, takerAmount *big.Int) {
	shares := ToFixedPoint(size)
	collateral := ToFixedPoint(price.Mul(size))

	if side == SideSell {
		return shares, collateral
	}
	return collateral, shares
}
