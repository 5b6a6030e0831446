package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Function selectors for the collateral token, first 4 bytes of the
// keccak256 of each signature.
var (
	selBalanceOf = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	selAllowance = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	selApprove   = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
	selTransfer  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

// MaxUint256 is the unbounded approval amount.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TokenReader reads collateral token state.
type TokenReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// TokenWriter submits collateral token transactions and returns the
// transaction hash.
type TokenWriter interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error)
}

// Client implements TokenReader and TokenWriter over a JSON-RPC node.
type Client struct {
	rpcURL  string
	chainID int64
	wallet  *wallet.Wallet

	mu     sync.Mutex
	client *ethclient.Client
}

func NewClient(rpcURL string, chainID int64, w *wallet.Wallet) *Client {
	return &Client{
		rpcURL:  rpcURL,
		chainID: chainID,
		wallet:  w,
	}
}

func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.rpcURL == "" {
		return nil, fmt.Errorf("rpc url not configured")
	}
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rpc: %w", err)
	}
	c.client = client
	return c.client, nil
}

func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := PackCall(selBalanceOf, owner.Bytes())
	return c.callUint(ctx, token, data)
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data := PackCall(selAllowance, owner.Bytes(), spender.Bytes())
	return c.callUint(ctx, token, data)
}

func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data := PackCall(selApprove, spender.Bytes(), amount.Bytes())
	return c.send(ctx, token, data)
}

func (c *Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	data := PackCall(selTransfer, to.Bytes(), amount.Bytes())
	return c.send(ctx, token, data)
}

func (c *Client) callUint(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}
	output, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc call failed: %w", err)
	}
	return new(big.Int).SetBytes(output), nil
}

func (c *Client) send(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	from := c.wallet.Address()
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch pending nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas estimation failed: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := c.wallet.SignTx(tx, c.chainID)
	if err != nil {
		return common.Hash{}, err
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	hash := signed.Hash()
	logger.Info("Transaction sent", "to", to.Hex(), "hash", hash.Hex(), "nonce", nonce)
	return hash, nil
}

// PackCall builds calldata: 4-byte selector followed by each argument
// left-padded to 32 bytes.
func PackCall(selector []byte, args ...[]byte) []byte {
	data := make([]byte, 4+32*len(args))
	copy(data[0:4], selector)
	for i, arg := range args {
		copy(data[4+32*i+(32-len(arg)):4+32*(i+1)], arg)
	}
	return data
}
