package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/polydesk/internal/market"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/stream"
)

// bookwatch subscribes to one market channel and prints the derived
// book view every few seconds. Handy for eyeballing feed health.
func main() {
	url := flag.String("url", "", "websocket url of the market data feed")
	marketID := flag.String("market", "", "market id to watch")
	outcomeID := flag.String("outcome", "0", "outcome id")
	share := flag.String("share", "yes", "share class (yes/no)")
	every := flag.Duration("every", 5*time.Second, "print interval")
	flag.Parse()

	if *url == "" || *marketID == "" {
		fmt.Fprintln(os.Stderr, "usage: bookwatch -url wss://... -market <id> [-outcome 0] [-share yes]")
		os.Exit(2)
	}

	logger.Init("warn")

	s := stream.New(stream.Config{URL: *url})
	s.Start()
	defer s.Stop()

	sub, err := stream.SubscribeBook(s, market.BookKey{
		MarketID:   *marketID,
		OutcomeID:  *outcomeID,
		ShareClass: *share,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "subscribe failed: %v\n", err)
		os.Exit(1)
	}
	defer sub.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			printView(market.ComputeView(sub.Book().Snapshot()), s.Connected())
		}
	}
}

func printView(v market.View, connected bool) {
	status := "LIVE"
	if !connected {
		status = "DISCONNECTED"
	}
	fmt.Printf("--- %s %s ---\n", time.Now().Format(time.TimeOnly), status)

	for _, ask := range v.Asks {
		fmt.Printf("  ask %8s x %-10s\n", ask.Price.StringFixed(3), ask.Size.String())
	}
	if v.Spread != nil {
		fmt.Printf("  spread %s\n", v.Spread.StringFixed(3))
	} else {
		fmt.Println("  spread --")
	}
	for _, bid := range v.Bids {
		fmt.Printf("  bid %8s x %-10s\n", bid.Price.StringFixed(3), bid.Size.String())
	}
}
