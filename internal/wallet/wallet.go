package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the active session's signing key. A nil *Wallet is a
// valid "not connected" value: every operation fails fast with
// WALLET_NOT_CONNECTED.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromPrivateKey parses a hex private key (0x prefix optional).
func FromPrivateKey(privateKeyHex string) (*Wallet, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	publicKey := key.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

func (w *Wallet) Connected() bool {
	return w != nil && w.key != nil
}

func (w *Wallet) Address() common.Address {
	if w == nil {
		return common.Address{}
	}
	return w.address
}

// SignDigest signs a 32-byte hash and returns the 65-byte signature
// with V adjusted to 27/28 as verifying contracts expect.
func (w *Wallet) SignDigest(digest []byte) ([]byte, error) {
	if !w.Connected() {
		return nil, apperrors.NewWalletNotConnected()
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	signature, err := crypto.Sign(digest, w.key)
	if err != nil {
		return nil, apperrors.NewSigningRejected(err)
	}

	// crypto.Sign returns [R || S || V] with V in {0,1}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return signature, nil
}

// SignTx signs a chain transaction with the session key.
func (w *Wallet) SignTx(tx *types.Transaction, chainID int64) (*types.Transaction, error) {
	if !w.Connected() {
		return nil, apperrors.NewWalletNotConnected()
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), w.key)
	if err != nil {
		return nil, apperrors.NewSigningRejected(err)
	}
	return signed, nil
}
