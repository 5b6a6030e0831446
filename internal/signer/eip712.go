package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Schema selects which verifying contract and field layout an order
// is signed under. The two layouts are incompatible by design.
type Schema string

const (
	// SchemaGeneric scopes decimal-string orders to the trading
	// application's own exchange contract.
	SchemaGeneric Schema = "generic"
	// SchemaPositionToken is the position-token exchange layout with
	// fixed-point integer amounts.
	SchemaPositionToken Schema = "position-token"
)

// Domain constants. Name and version MUST byte-match the verifying
// contract's own domain or signatures verify against nothing.
const (
	GenericDomainName    = "Polydesk Exchange"
	GenericDomainVersion = "1"

	PositionDomainName    = "CTF Exchange"
	PositionDomainVersion = "1"
)

// SignatureType discriminates how the exchange verifies the maker.
type SignatureType uint8

const (
	SigTypeEOA   SignatureType = 0
	SigTypeProxy SignatureType = 1
	SigTypeSafe  SignatureType = 2
)

var (
	// EIP712DomainTypeHash is the keccak256 hash of the EIP712Domain type definition
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	// PositionOrderTypeHash is the keccak256 hash of the position-token Order type definition
	PositionOrderTypeHash = crypto.Keccak256Hash([]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"))
)

// PositionOrder is the position-token exchange message to be signed.
type PositionOrder struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// DomainSeparator pre-computes the EIP-712 domain hash.
// keccak256(abi.encode(typeHash, keccak256(name), keccak256(version), chainId, verifyingContract))
func DomainSeparator(name, version string, chainID int64, verifyingContract common.Address) common.Hash {
	nameHash := crypto.Keccak256Hash([]byte(name))
	versionHash := crypto.Keccak256Hash([]byte(version))

	// Manual ABI encode, all fields are 32 bytes
	data := make([]byte, 32*5)
	copy(data[0:32], EIP712DomainTypeHash.Bytes())
	copy(data[32:64], nameHash.Bytes())
	copy(data[64:96], versionHash.Bytes())
	copy(data[96:128], math.U256Bytes(big.NewInt(chainID)))
	copy(data[128+12:160], verifyingContract.Bytes())

	return crypto.Keccak256Hash(data)
}

// HashPositionOrder computes the final EIP-191 digest for a
// position-token order: keccak256("\x19\x01" || domain || hashStruct).
func HashPositionOrder(order *PositionOrder, domainSeparator common.Hash) []byte {
	// 12 fields + typeHash = 13 items * 32 bytes
	data := make([]byte, 32*13)

	copy(data[0:32], PositionOrderTypeHash.Bytes())
	if order.Salt != nil {
		copy(data[32:64], math.U256Bytes(order.Salt))
	}
	copy(data[64+12:96], order.Maker.Bytes())
	copy(data[96+12:128], order.Signer.Bytes())
	copy(data[128+12:160], order.Taker.Bytes())
	if order.TokenID != nil {
		copy(data[160:192], math.U256Bytes(order.TokenID))
	}
	if order.MakerAmount != nil {
		copy(data[192:224], math.U256Bytes(order.MakerAmount))
	}
	if order.TakerAmount != nil {
		copy(data[224:256], math.U256Bytes(order.TakerAmount))
	}
	if order.Expiration != nil {
		copy(data[256:288], math.U256Bytes(order.Expiration))
	}
	if order.Nonce != nil {
		copy(data[288:320], math.U256Bytes(order.Nonce))
	}
	if order.FeeRateBps != nil {
		copy(data[320:352], math.U256Bytes(order.FeeRateBps))
	}
	copy(data[352:384], math.U256Bytes(big.NewInt(int64(order.Side))))
	copy(data[384:416], math.U256Bytes(big.NewInt(int64(order.SignatureType))))

	hashStruct := crypto.Keccak256(data)
	return crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator.Bytes(), hashStruct)
}

// GenericOrder is the application-scoped order shape. All numeric
// fields are carried as decimal strings.
type GenericOrder struct {
	MarketID   string `json:"market_id"`
	OutcomeID  string `json:"outcome_id"`
	Side       string `json:"side"`
	OrderKind  string `json:"order_kind"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	ShareClass string `json:"share_class"`
	Maker      string `json:"maker"`
	Nonce      string `json:"nonce"`
	Expiration string `json:"expiration"`
}

var genericOrderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "marketId", Type: "string"},
		{Name: "outcomeId", Type: "string"},
		{Name: "side", Type: "string"},
		{Name: "orderKind", Type: "string"},
		{Name: "price", Type: "string"},
		{Name: "size", Type: "string"},
		{Name: "shareClass", Type: "string"},
		{Name: "maker", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
	},
}

// HashGenericOrder computes the EIP-712 digest for a generic-schema
// order via the structured typed-data machinery.
func HashGenericOrder(order *GenericOrder, chainID int64, verifyingContract common.Address) ([]byte, error) {
	typed := apitypes.TypedData{
		Types:       genericOrderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              GenericDomainName,
			Version:           GenericDomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"marketId":   order.MarketID,
			"outcomeId":  order.OutcomeID,
			"side":       order.Side,
			"orderKind":  order.OrderKind,
			"price":      order.Price,
			"size":       order.Size,
			"shareClass": order.ShareClass,
			"maker":      order.Maker,
			"nonce":      order.Nonce,
			"expiration": order.Expiration,
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return digest, nil
}
