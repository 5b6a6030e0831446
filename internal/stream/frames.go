package stream

import "encoding/json"

// Frame type tags on the wire.
const (
	FramePing         = "ping"
	FramePong         = "pong"
	FrameNotification = "notification"
	FrameBook         = "book"
	FrameSubscribe    = "subscribe"
)

// envelope is the minimal shape every frame shares. Frames that do
// not parse to this are dropped; malformed peer data is not the
// client's fault to crash over.
type envelope struct {
	Type string `json:"type"`
}

type pingFrame struct {
	Type string `json:"type"`
}

type subscribeFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Notification is the typed payload of a notification frame.
type Notification struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Link    string          `json:"link,omitempty"`
}

type notificationFrame struct {
	Type string       `json:"type"`
	Data Notification `json:"data"`
}

// PriceLevelRaw carries one level as decimal strings.
type PriceLevelRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookMessage is a resolved order-book snapshot for one
// (market, outcome, share class) triple.
type BookMessage struct {
	Type      string          `json:"type"`
	MarketID  string          `json:"market_id"`
	OutcomeID string          `json:"outcome_id"`
	ShareType string          `json:"share_type"`
	Bids      []PriceLevelRaw `json:"bids"`
	Asks      []PriceLevelRaw `json:"asks"`
	Timestamp int64           `json:"timestamp"`
}
