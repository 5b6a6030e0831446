package stream

import (
	"encoding/json"
	"time"

	"github.com/GoPolymarket/polydesk/internal/market"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/shopspring/decimal"
)

// BookSubscription binds one market.Book to the stream. It accepts
// only deltas whose (market, outcome, share class) triple matches its
// own; non-matching deltas on a shared channel are ignored, not
// buffered.
type BookSubscription struct {
	book        *market.Book
	unsubscribe func()
}

// SubscribeBook subscribes the stream to the market's channel and
// starts feeding the returned book.
func SubscribeBook(s *Stream, key market.BookKey) (*BookSubscription, error) {
	book := market.NewBook(key)

	sub := &BookSubscription{book: book}
	sub.unsubscribe = s.On(FrameBook, func(raw json.RawMessage) {
		sub.apply(raw)
	})

	if err := s.Subscribe("orderbook:" + key.MarketID); err != nil {
		sub.unsubscribe()
		return nil, err
	}
	return sub, nil
}

func (b *BookSubscription) Book() *market.Book {
	return b.book
}

// Close stops feeding the book. The stream subscription itself stays
// up for other consumers of the channel.
func (b *BookSubscription) Close() {
	b.unsubscribe()
}

func (b *BookSubscription) apply(raw json.RawMessage) {
	var msg BookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	key := b.book.Key()
	if msg.MarketID != key.MarketID || msg.OutcomeID != key.OutcomeID || msg.ShareType != key.ShareClass {
		return
	}

	bids, ok := parseLevels(msg.Bids)
	if !ok {
		return
	}
	asks, ok := parseLevels(msg.Asks)
	if !ok {
		return
	}

	ts := time.Unix(msg.Timestamp, 0)
	if msg.Timestamp == 0 {
		ts = time.Now()
	}
	if err := b.book.Replace(bids, asks, ts); err != nil {
		logger.Warn("Dropped non-monotonic book snapshot", "market", key.MarketID, "error", err)
	}
}

func parseLevels(raw []PriceLevelRaw) ([]market.Level, bool) {
	levels := make([]market.Level, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, false
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil {
			return nil, false
		}
		levels = append(levels, market.Level{Price: price, Size: size})
	}
	return levels, true
}
