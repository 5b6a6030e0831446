package handler

import (
	"net/http"
	"sync"

	"github.com/GoPolymarket/polydesk/internal/market"
	"github.com/GoPolymarket/polydesk/internal/stream"
	"github.com/gin-gonic/gin"
)

type MarketHandler struct {
	stream *stream.Stream
	hub    *stream.NotificationHub

	mu    sync.Mutex
	books map[market.BookKey]*stream.BookSubscription
}

func NewMarketHandler(s *stream.Stream, hub *stream.NotificationHub) *MarketHandler {
	return &MarketHandler{
		stream: s,
		hub:    hub,
		books:  make(map[market.BookKey]*stream.BookSubscription),
	}
}

// BookView returns the derived presentation state for one book,
// subscribing on first request.
func (h *MarketHandler) BookView(c *gin.Context) {
	key := market.BookKey{
		MarketID:   c.Param("id"),
		OutcomeID:  c.DefaultQuery("outcome", "0"),
		ShareClass: c.DefaultQuery("share", "yes"),
	}

	sub, err := h.bookFor(key)
	if err != nil {
		c.Error(err)
		return
	}

	view := market.ComputeView(sub.Book().Snapshot())
	c.JSON(http.StatusOK, view)
}

func (h *MarketHandler) bookFor(key market.BookKey) (*stream.BookSubscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.books[key]; ok {
		return sub, nil
	}
	sub, err := stream.SubscribeBook(h.stream, key)
	if err != nil {
		return nil, err
	}
	h.books[key] = sub
	return sub, nil
}

func (h *MarketHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.hub.Recent()})
}

func (h *MarketHandler) StreamStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": h.stream.Connected()})
}

func (h *MarketHandler) Reconnect(c *gin.Context) {
	h.stream.Reconnect()
	c.JSON(http.StatusOK, gin.H{"connected": h.stream.Connected()})
}
