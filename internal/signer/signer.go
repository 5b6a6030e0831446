package signer

import (
	"context"
	"math/big"
	"time"

	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/GoPolymarket/polydesk/internal/pkg/metrics"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const DefaultExpiration = 60 * time.Minute

// SignedOrder is an Intent plus the identity the exchange needs.
// Never mutated after signing; a changed price, size, or side means
// constructing and signing a new Intent.
type SignedOrder struct {
	Intent     Intent
	Schema     Schema
	Maker      common.Address
	Nonce      *big.Int
	Expiration *big.Int
	Signature  string

	// Exactly one of these is set, matching Schema.
	Generic  *GenericOrder
	Position *PositionOrder
}

// Signer builds and signs exchange orders. It does not submit them.
type Signer struct {
	wallet     *wallet.Wallet
	networks   *chain.Networks
	chainID    int64
	nonces     *NonceSource
	expiry     time.Duration
	feeRateBps int64
	sigType    SignatureType
}

type Option func(*Signer)

func WithExpiration(d time.Duration) Option {
	return func(s *Signer) { s.expiry = d }
}

func WithFeeRateBps(bps int64) Option {
	return func(s *Signer) { s.feeRateBps = bps }
}

func WithSignatureType(t SignatureType) Option {
	return func(s *Signer) { s.sigType = t }
}

func New(w *wallet.Wallet, networks *chain.Networks, chainID int64, opts ...Option) *Signer {
	s := &Signer{
		wallet:   w,
		networks: networks,
		chainID:  chainID,
		nonces:   NewNonceSource(),
		expiry:   DefaultExpiration,
		sigType:  SigTypeEOA,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign validates the intent, derives the schema-specific message,
// and produces the structured signature over it. The ctx is honored
// by interactive signing capabilities; a declined request surfaces as
// SIGNING_REJECTED.
func (s *Signer) Sign(ctx context.Context, intent Intent, schema Schema) (*SignedOrder, error) {
	if !s.wallet.Connected() {
		return nil, apperrors.NewWalletNotConnected()
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce := s.nonces.Next()
	expiration := big.NewInt(time.Now().Add(s.expiry).Unix())

	var signed *SignedOrder
	var err error
	switch schema {
	case SchemaPositionToken:
		signed, err = s.signPosition(intent, nonce, expiration)
	case SchemaGeneric:
		signed, err = s.signGeneric(intent, nonce, expiration)
	default:
		return nil, apperrors.NewInvalidInput("unknown order schema")
	}
	if err != nil {
		return nil, err
	}

	metrics.OrdersSigned.WithLabelValues(string(schema), string(intent.Side)).Inc()
	return signed, nil
}

func (s *Signer) signPosition(intent Intent, nonce, expiration *big.Int) (*SignedOrder, error) {
	contract, err := s.networks.CTFExchange(s.chainID)
	if err != nil {
		return nil, err
	}

	tokenID, ok := new(big.Int).SetString(intent.TokenID, 10)
	if !ok {
		return nil, apperrors.NewInvalidInput("token id is not a valid integer")
	}

	makerAmount, takerAmount := SplitAmounts(intent.Side, intent.price(), intent.size())
	maker := s.wallet.Address()

	order := &PositionOrder{
		Salt:          s.nonces.Next(),
		Maker:         maker,
		Signer:        maker,
		Taker:         common.Address{}, // zero address: any taker
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    expiration,
		Nonce:         nonce,
		FeeRateBps:    big.NewInt(s.feeRateBps),
		Side:          intent.Side.Code(),
		SignatureType: uint8(s.sigType),
	}

	domain := DomainSeparator(PositionDomainName, PositionDomainVersion, s.chainID, contract)
	digest := HashPositionOrder(order, domain)

	sig, err := s.wallet.SignDigest(digest)
	if err != nil {
		return nil, err
	}

	return &SignedOrder{
		Intent:     intent,
		Schema:     SchemaPositionToken,
		Maker:      maker,
		Nonce:      nonce,
		Expiration: expiration,
		Signature:  hexutil.Encode(sig),
		Position:   order,
	}, nil
}

func (s *Signer) signGeneric(intent Intent, nonce, expiration *big.Int) (*SignedOrder, error) {
	contract, err := s.networks.Exchange(s.chainID)
	if err != nil {
		return nil, err
	}

	maker := s.wallet.Address()
	order := &GenericOrder{
		MarketID:   intent.MarketID,
		OutcomeID:  intent.OutcomeID,
		Side:       string(intent.Side),
		OrderKind:  string(intent.Kind),
		Price:      intent.Price,
		Size:       intent.Size,
		ShareClass: string(intent.ShareClass),
		Maker:      maker.Hex(),
		Nonce:      nonce.String(),
		Expiration: expiration.String(),
	}

	digest, err := HashGenericOrder(order, s.chainID, contract)
	if err != nil {
		return nil, err
	}

	sig, err := s.wallet.SignDigest(digest)
	if err != nil {
		return nil, err
	}

	return &SignedOrder{
		Intent:     intent,
		Schema:     SchemaGeneric,
		Maker:      maker,
		Nonce:      nonce,
		Expiration: expiration,
		Signature:  hexutil.Encode(sig),
		Generic:    order,
	}, nil
}
