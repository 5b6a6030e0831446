package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Level represents a single price level in the orderbook
type Level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BookKey identifies one side of one outcome of one market.
type BookKey struct {
	MarketID   string
	OutcomeID  string
	ShareClass string
}

func (k BookKey) String() string {
	return k.MarketID + ":" + k.OutcomeID + ":" + k.ShareClass
}

// Snapshot is a wholesale book state: bids sorted high to low, asks
// low to high, as delivered by the source. The client validates the
// ordering rather than re-sorting.
type Snapshot struct {
	Key       BookKey
	Bids      []Level
	Asks      []Level
	UpdatedAt time.Time
}

// Validate checks the monotonicity invariant: bid prices non-increasing,
// ask prices non-decreasing.
func (s *Snapshot) Validate() error {
	for i := 1; i < len(s.Bids); i++ {
		if s.Bids[i].Price.GreaterThan(s.Bids[i-1].Price) {
			return fmt.Errorf("bid prices not non-increasing at level %d", i)
		}
	}
	for i := 1; i < len(s.Asks); i++ {
		if s.Asks[i].Price.LessThan(s.Asks[i-1].Price) {
			return fmt.Errorf("ask prices not non-decreasing at level %d", i)
		}
	}
	return nil
}

// Book holds the latest snapshot for one key. Snapshots are replaced
// wholesale, never patched; the source resolves deltas before
// delivery.
type Book struct {
	key BookKey

	mu   sync.RWMutex
	snap Snapshot
}

func NewBook(key BookKey) *Book {
	return &Book{
		key: key,
		snap: Snapshot{
			Key:  key,
			Bids: make([]Level, 0),
			Asks: make([]Level, 0),
		},
	}
}

func (b *Book) Key() BookKey {
	return b.key
}

// Replace swaps in a full snapshot. Invalid (non-monotonic) data is
// rejected so a corrupt frame cannot poison the view.
func (b *Book) Replace(bids, asks []Level, ts time.Time) error {
	snap := Snapshot{
		Key:       b.key,
		Bids:      bids,
		Asks:      asks,
		UpdatedAt: ts,
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	b.snap = snap
	b.mu.Unlock()
	return nil
}

// Snapshot returns a safe copy of the current state.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := Snapshot{
		Key:       b.snap.Key,
		Bids:      make([]Level, len(b.snap.Bids)),
		Asks:      make([]Level, len(b.snap.Asks)),
		UpdatedAt: b.snap.UpdatedAt,
	}
	copy(out.Bids, b.snap.Bids)
	copy(out.Asks, b.snap.Asks)
	return out
}
