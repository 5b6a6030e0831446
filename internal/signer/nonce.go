package signer

import (
	"math/big"
	"sync"
	"time"
)

// NonceSource yields values guaranteed unique per call. The exchange
// relies on uniqueness only, not temporal ordering, so a bumped
// microsecond timestamp is sufficient.
type NonceSource struct {
	mu   sync.Mutex
	last int64
}

func NewNonceSource() *NonceSource {
	return &NonceSource{}
}

func (n *NonceSource) Next() *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMicro()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return big.NewInt(now)
}
